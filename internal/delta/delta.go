// Package delta computes and applies the byte edit scripts stored on
// demoted file revisions.
//
// A script is a header followed by a sequence of copy and insert
// instructions. Applying the script for (base -> target) to base yields
// target exactly:
//
//	magic "QVD1"
//	uvarint base length
//	uvarint target length
//	repeated:
//	  'C' uvarint offset uvarint length   copy from base
//	  'I' uvarint length bytes            insert literal bytes
package delta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	opCopy   byte = 'C'
	opInsert byte = 'I'
)

var magic = []byte("QVD1")

const maxPrealloc = 64 << 20

// ErrMalformedScript is returned by Apply when a script cannot be decoded
// or does not fit the base it is applied to.
var ErrMalformedScript = errors.New("malformed delta script")

// DiffTimeout bounds the time spent searching for a minimal edit script.
// A timed out search still yields a correct, if larger, script.
var DiffTimeout = 2 * time.Second

// Compute returns a script that transforms base into target.
func Compute(base, target []byte) []byte {
	var b scriptBuilder
	b.header(len(base), len(target))

	if len(base) == 0 || len(target) == 0 || bytes.Equal(base, target) {
		if bytes.Equal(base, target) && len(base) > 0 {
			b.copy(0, len(base))
		} else {
			b.insert(target)
		}
		return b.bytes()
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = DiffTimeout
	diffs := dmp.DiffMainRunes(toRunes(base), toRunes(target), false)

	pos := 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			n := utf8.RuneCountInString(d.Text)
			b.copy(pos, n)
			pos += n
		case diffmatchpatch.DiffDelete:
			pos += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffInsert:
			b.insert(fromRunes(d.Text))
		}
	}
	return b.bytes()
}

// Apply runs script against base and returns the resulting bytes. It never
// modifies base.
func Apply(base, script []byte) ([]byte, error) {
	if !bytes.HasPrefix(script, magic) {
		return nil, fmt.Errorf("%w: bad header", ErrMalformedScript)
	}
	r := bytes.NewReader(script[len(magic):])

	baseLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading base length: %v", ErrMalformedScript, err)
	}
	if baseLen != uint64(len(base)) {
		return nil, fmt.Errorf("%w: base length %d, script expects %d", ErrMalformedScript, len(base), baseLen)
	}
	targetLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading target length: %v", ErrMalformedScript, err)
	}
	capHint := targetLen
	if capHint > maxPrealloc {
		capHint = maxPrealloc
	}

	out := make([]byte, 0, capHint)
	for {
		op, err := r.ReadByte()
		if err != nil {
			break
		}
		switch op {
		case opCopy:
			off, err1 := binary.ReadUvarint(r)
			n, err2 := binary.ReadUvarint(r)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: truncated copy", ErrMalformedScript)
			}
			if off > baseLen || n > baseLen-off {
				return nil, fmt.Errorf("%w: copy [%d,+%d) outside base of %d bytes", ErrMalformedScript, off, n, baseLen)
			}
			out = append(out, base[off:off+n]...)
		case opInsert:
			n, err := binary.ReadUvarint(r)
			if err != nil || n > uint64(r.Len()) {
				return nil, fmt.Errorf("%w: truncated insert", ErrMalformedScript)
			}
			lit := make([]byte, n)
			if _, err := io.ReadFull(r, lit); err != nil {
				return nil, fmt.Errorf("%w: reading insert: %v", ErrMalformedScript, err)
			}
			out = append(out, lit...)
		default:
			return nil, fmt.Errorf("%w: unknown instruction %q", ErrMalformedScript, op)
		}
		if uint64(len(out)) > targetLen {
			return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrMalformedScript, targetLen)
		}
	}

	if uint64(len(out)) != targetLen {
		return nil, fmt.Errorf("%w: produced %d bytes, expected %d", ErrMalformedScript, len(out), targetLen)
	}
	return out, nil
}

type scriptBuilder struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte

	// pending copy, merged with adjacent copies
	copyOff, copyLen int
}

func (b *scriptBuilder) header(baseLen, targetLen int) {
	b.buf.Write(magic)
	b.uvarint(uint64(baseLen))
	b.uvarint(uint64(targetLen))
}

func (b *scriptBuilder) copy(off, n int) {
	if n == 0 {
		return
	}
	if b.copyLen > 0 && b.copyOff+b.copyLen == off {
		b.copyLen += n
		return
	}
	b.flush()
	b.copyOff, b.copyLen = off, n
}

func (b *scriptBuilder) insert(p []byte) {
	if len(p) == 0 {
		return
	}
	b.flush()
	b.buf.WriteByte(opInsert)
	b.uvarint(uint64(len(p)))
	b.buf.Write(p)
}

func (b *scriptBuilder) flush() {
	if b.copyLen == 0 {
		return
	}
	b.buf.WriteByte(opCopy)
	b.uvarint(uint64(b.copyOff))
	b.uvarint(uint64(b.copyLen))
	b.copyLen = 0
}

func (b *scriptBuilder) bytes() []byte {
	b.flush()
	return b.buf.Bytes()
}

func (b *scriptBuilder) uvarint(v uint64) {
	n := binary.PutUvarint(b.tmp[:], v)
	b.buf.Write(b.tmp[:n])
}

// toRunes maps each byte to the rune with the same value so the diff runs
// over raw bytes rather than decoded text.
func toRunes(p []byte) []rune {
	rs := make([]rune, len(p))
	for i, c := range p {
		rs[i] = rune(c)
	}
	return rs
}

func fromRunes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}
