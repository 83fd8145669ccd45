package qvcs_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/testutil"
)

func TestAppendRevision_HydrationRoundTrip(t *testing.T) {
	for _, compression := range []string{"snappy", "none"} {
		t.Run(compression, func(t *testing.T) {
			f := newFixture(t, qvcs.Options{Compression: compression})

			versions := []string{
				"package main\n",
				"package main\n\nfunc main() {}\n",
				"",
				strings.Repeat("line\n", 500),
				strings.Repeat("line\n", 250) + "changed\n" + strings.Repeat("line\n", 249),
				"\x00\x01\x02binary\xff\xfe",
			}

			fn, first := f.addFile(t, f.trunk.ID, f.root(), "main.go", versions[0])
			revs := []*qvcs.FileRevision{first}
			for _, v := range versions[1:] {
				revs = append(revs, f.append(t, f.trunk.ID, fn.FileID, v))
			}

			for i, rev := range revs {
				if got := f.hydrate(t, rev.ID); got != versions[i] {
					t.Errorf("Hydrate(rev %d) = %q, want %q", i, got, versions[i])
				}
			}

			history, err := f.e.FileHistory(f.ctx, f.trunk.ID, fn.FileID, qvcs.NoCeiling)
			if err != nil {
				t.Fatalf("FileHistory() error = %v", err)
			}
			if len(history) != len(revs) {
				t.Fatalf("len(FileHistory()) = %d, want %d", len(history), len(revs))
			}
			for i, h := range history {
				want := revs[len(revs)-1-i]
				if h.ID != want.ID {
					t.Errorf("history[%d].ID = %d, want %d", i, h.ID, want.ID)
				}
				if h.Data != nil {
					t.Errorf("history[%d].Data loaded, want header only", i)
				}
			}
		})
	}
}

func TestAppendRevision_SingleTipPerLineage(t *testing.T) {
	f := newFixture(t, qvcs.Options{})
	fn, r1 := f.addFile(t, f.trunk.ID, f.root(), "f", "one")
	r2 := f.append(t, f.trunk.ID, fn.FileID, "two")
	r3 := f.append(t, f.trunk.ID, fn.FileID, "three")

	revs, err := f.e.BranchRevisions(f.ctx, f.trunk.ID, fn.FileID, qvcs.NoCeiling)
	if err != nil {
		t.Fatalf("BranchRevisions() error = %v", err)
	}
	tips := 0
	targets := map[int64]int64{}
	for _, r := range revs {
		if r.IsTip() {
			tips++
		}
		targets[r.ID] = r.ReverseDeltaRevisionID
	}
	if tips != 1 {
		t.Errorf("tips = %d, want 1", tips)
	}
	if targets[r1.ID] != r2.ID || targets[r2.ID] != r3.ID || targets[r3.ID] != 0 {
		t.Errorf("reverse delta targets = %v, want r1->r2->r3", targets)
	}
	if r3.AncestorRevisionID != r2.ID || r2.AncestorRevisionID != r1.ID || r1.AncestorRevisionID != 0 {
		t.Errorf("ancestors = %d,%d,%d", r1.AncestorRevisionID, r2.AncestorRevisionID, r3.AncestorRevisionID)
	}
}

func TestAppendRevision_BaseRevisionMismatch(t *testing.T) {
	f := newFixture(t, qvcs.Options{})
	fn, r1 := f.addFile(t, f.trunk.ID, f.root(), "f", "one")
	f.append(t, f.trunk.ID, fn.FileID, "two")

	_, err := f.e.AppendRevision(f.ctx, qvcs.AppendRequest{
		BranchID:       f.trunk.ID,
		FileID:         fn.FileID,
		Content:        []byte("stale"),
		Author:         "bob",
		BaseRevisionID: r1.ID,
	})
	wantErr(t, err, qvcs.ErrConcurrentModification)
	if !qvcs.IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
	if got := f.content(t, f.trunk.ID, fn.FileID); got != "two" {
		t.Errorf("content after rejected append = %q, want two", got)
	}
}

func TestAppendRevision_Concurrent(t *testing.T) {
	db := testutil.NewTestFileDatabase(t)
	e, err := qvcs.NewEngine(db, qvcs.NewNopLogger(), testutil.FixedClock(), qvcs.Options{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	f := setupFixture(t, e, nil)
	fn, base := f.addFile(t, f.trunk.ID, f.root(), "f", "base")

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.AppendRevision(context.Background(), qvcs.AppendRequest{
				BranchID:       f.trunk.ID,
				FileID:         fn.FileID,
				Content:        []byte(strings.Repeat("x", i+1)),
				Author:         "alice",
				BaseRevisionID: base.ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !qvcs.IsRetryable(err):
			t.Errorf("AppendRevision() error = %v, want retryable", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("successful appends = %d, want 1", succeeded)
	}

	// the surviving chain still hydrates
	if got := f.hydrate(t, base.ID); got != "base" {
		t.Errorf("Hydrate(base) = %q, want base", got)
	}
	revs, err := e.BranchRevisions(f.ctx, f.trunk.ID, fn.FileID, qvcs.NoCeiling)
	if err != nil {
		t.Fatalf("BranchRevisions() error = %v", err)
	}
	if len(revs) != 2 {
		t.Errorf("len(BranchRevisions()) = %d, want 2", len(revs))
	}
}

func TestHydrate_CorruptChain(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		e, err := qvcs.NewEngine(db, nil, testutil.FixedClock(), qvcs.Options{})
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		f := setupFixture(t, e, nil)
		fn, r1 := f.addFile(t, f.trunk.ID, f.root(), "f", "one")
		r2 := f.append(t, f.trunk.ID, fn.FileID, "two")

		if _, err := db.DB().Exec(`UPDATE file_revisions SET reverse_delta_revision_id = ? WHERE id = ?`, r1.ID, r2.ID); err != nil {
			t.Fatalf("corrupting chain: %v", err)
		}
		_, err = e.Hydrate(f.ctx, r1.ID)
		wantErr(t, err, qvcs.ErrCorruptDeltaChain)
	})

	t.Run("digest mismatch", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		e, err := qvcs.NewEngine(db, nil, testutil.FixedClock(), qvcs.Options{})
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		f := setupFixture(t, e, nil)
		fn, r1 := f.addFile(t, f.trunk.ID, f.root(), "f", "one")
		f.append(t, f.trunk.ID, fn.FileID, "two")

		if _, err := db.DB().Exec(`UPDATE file_revisions SET digest = X'00' WHERE id = ?`, r1.ID); err != nil {
			t.Fatalf("corrupting digest: %v", err)
		}
		_, err = e.Hydrate(f.ctx, r1.ID)
		wantErr(t, err, qvcs.ErrCorruptDeltaChain)
	})

	t.Run("unknown revision", func(t *testing.T) {
		f := newFixture(t, qvcs.Options{})
		_, err := f.e.Hydrate(f.ctx, 9999)
		wantErr(t, err, qvcs.ErrRevisionNotFound)
	})
}

func TestRevisionAsOf(t *testing.T) {
	f := newFixture(t, qvcs.Options{})
	start := f.clock.Now()
	fn, r1 := f.addFile(t, f.trunk.ID, f.root(), "f", "morning")
	f.clock.Advance(time.Hour)
	r2 := f.append(t, f.trunk.ID, fn.FileID, "noon")

	got, err := f.e.RevisionAsOf(f.ctx, f.trunk.ID, fn.FileID, start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("RevisionAsOf() error = %v", err)
	}
	if got.ID != r1.ID {
		t.Errorf("RevisionAsOf(+30m) = %d, want %d", got.ID, r1.ID)
	}
	got, err = f.e.RevisionAsOf(f.ctx, f.trunk.ID, fn.FileID, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("RevisionAsOf() error = %v", err)
	}
	if got.ID != r2.ID {
		t.Errorf("RevisionAsOf(+2h) = %d, want %d", got.ID, r2.ID)
	}
}

func TestFileContent_LargeContentSurvivesManyRevisions(t *testing.T) {
	f := newFixture(t, qvcs.Options{HydrationCacheEntries: 2})
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		buf.WriteString("row\n")
	}
	fn, first := f.addFile(t, f.trunk.ID, f.root(), "big.txt", buf.String())
	want := buf.String()
	for i := 0; i < 20; i++ {
		buf.WriteString("more\n")
		f.append(t, f.trunk.ID, fn.FileID, buf.String())
	}
	if got := f.hydrate(t, first.ID); got != want {
		t.Errorf("Hydrate(first) length = %d, want %d", len(got), len(want))
	}
	if got := f.content(t, f.trunk.ID, fn.FileID); got != buf.String() {
		t.Errorf("FileContent() length = %d, want %d", len(got), buf.Len())
	}
}
