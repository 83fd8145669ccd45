package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"qvcs-go/internal/qvcs"
)

// fakeS3 serves the path-style subset of the S3 API the vault uses.
type fakeS3 struct {
	bucket string

	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]string
}

func newFakeS3(t *testing.T, bucket string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{bucket: bucket, objects: make(map[string][]byte), meta: make(map[string]string)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if key == "" {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = data
		f.meta[key] = r.Header.Get("X-Amz-Meta-" + versionMetaKey)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("X-Amz-Meta-"+versionMetaKey, f.meta[key])
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		delete(f.meta, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestS3Vault(t *testing.T, prefix string) (*S3Vault, *fakeS3) {
	t.Helper()
	f, srv := newFakeS3(t, "snapshots")
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return newS3Vault("test-s3", "snapshots", prefix, client), f
}

func TestS3Vault_PutAndGetSnapshot(t *testing.T) {
	ctx := context.Background()
	v, f := newTestS3Vault(t, "qvcs")

	data := "sqlite snapshot bytes"
	if err := v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(data), int64(len(data)), 9); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if _, ok := f.objects["qvcs/snapshots/server-1/qvcs.db"]; !ok {
		t.Errorf("object keys = %v, want qvcs/snapshots/server-1/qvcs.db", f.objects)
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot(ctx, "server-1", "qvcs.db", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetSnapshot() = %q, want %q", buf.String(), data)
	}

	version, err := v.SnapshotVersion(ctx, "server-1", "qvcs.db")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 9 {
		t.Errorf("SnapshotVersion() = %d, want 9", version)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestS3Vault(t, "")

	version, err := v.SnapshotVersion(ctx, "server-1", "qvcs.db")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("SnapshotVersion() = %d, want 0", version)
	}

	var buf bytes.Buffer
	err = v.GetSnapshot(ctx, "server-1", "qvcs.db", &buf)
	if !errors.Is(err, qvcs.ErrSnapshotNotFound) {
		t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestS3Vault_SizeMismatchRemovesObject(t *testing.T) {
	ctx := context.Background()
	v, f := newTestS3Vault(t, "")

	err := v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader("short"), 100, 1)
	if err == nil {
		t.Fatal("PutSnapshot() expected error for size mismatch")
	}
	if len(f.objects) != 0 {
		t.Errorf("objects after failed put = %d, want 0", len(f.objects))
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	v, _ := newTestS3Vault(t, "")
	if err := v.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	v.bucket = "other"
	if err := v.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error for unknown bucket")
	}
}
