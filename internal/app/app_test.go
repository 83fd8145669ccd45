package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"qvcs-go/internal/config"
	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/testutil"
)

type testApp struct {
	*QVCSApp
	vault qvcs.Vault
	fsmgr *testutil.MockFilesystemManager
	clock *testutil.StubClock
}

func newTestApp(t *testing.T, operation string) *testApp {
	t.Helper()

	cfg := config.NewConfig("server-1", t.TempDir())
	v := testutil.NewTestVault()
	fsmgr := testutil.NewMockFilesystemManager()
	clock := testutil.FixedClock()

	a, err := newQVCSApp(context.Background(), cfg, deps{
		db:     testutil.NewTestDatabase(t),
		vaults: []qvcs.Vault{v},
		fsmgr:  fsmgr,
		logger: slog.New(&logHandler{w: io.Discard, opID: "test"}),
		clock:  clock,
	}, operation, "alice")
	if err != nil {
		t.Fatalf("newQVCSApp() error = %v", err)
	}
	return &testApp{QVCSApp: a, vault: v, fsmgr: fsmgr, clock: clock}
}

func TestNewQVCSApp_RequiresAuthor(t *testing.T) {
	cfg := config.NewConfig("server-1", t.TempDir())
	_, err := newQVCSApp(context.Background(), cfg, deps{
		db:     testutil.NewTestDatabase(t),
		logger: slog.New(&logHandler{w: io.Discard}),
		clock:  testutil.FixedClock(),
	}, "CreateProject", " ")
	if !errors.Is(err, qvcs.ErrInvalidRequest) {
		t.Errorf("newQVCSApp() error = %v, want ErrInvalidRequest", err)
	}
}

func TestNewQVCSApp_RefusesStaleDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig("server-1", t.TempDir())
	v := testutil.NewTestVault()
	snap := "newer"
	if err := v.PutSnapshot(ctx, "server-1", SnapshotName, strings.NewReader(snap), int64(len(snap)), 5); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	_, err := newQVCSApp(ctx, cfg, deps{
		db:     testutil.NewTestDatabase(t),
		vaults: []qvcs.Vault{v},
		logger: slog.New(&logHandler{w: io.Discard}),
		clock:  testutil.FixedClock(),
	}, "CreateProject", "alice")
	if err == nil || !strings.Contains(err.Error(), "behind vault") {
		t.Errorf("newQVCSApp() error = %v, want stale database refusal", err)
	}
}

func TestQVCSApp_FileWorkflow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "Workflow")

	if _, _, err := a.CreateProject(ctx, "web"); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, err := a.AddDirectory(ctx, "web", qvcs.TrunkBranchName, "/src"); err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	_, first, err := a.AddFile(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", []byte("v1"), "initial")
	if err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if _, err := a.Checkin(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", []byte("v2"), "second", first.ID); err != nil {
		t.Fatalf("Checkin() error = %v", err)
	}

	t.Run("stale base is refused", func(t *testing.T) {
		_, err := a.Checkin(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", []byte("v3"), "", first.ID)
		if !qvcs.IsRetryable(err) {
			t.Errorf("Checkin() error = %v, want retryable", err)
		}
	})

	t.Run("cat", func(t *testing.T) {
		_, content, err := a.Cat(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", 0, 0)
		if err != nil {
			t.Fatalf("Cat() error = %v", err)
		}
		if string(content) != "v2" {
			t.Errorf("Cat() = %q, want v2", content)
		}
		_, content, err = a.Cat(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", 0, first.ID)
		if err != nil {
			t.Fatalf("Cat(revision) error = %v", err)
		}
		if string(content) != "v1" {
			t.Errorf("Cat(revision) = %q, want v1", content)
		}
		_, _, err = a.Cat(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", 0, 9999)
		if !errors.Is(err, qvcs.ErrRevisionNotFound) {
			t.Errorf("Cat(unknown revision) error = %v, want ErrRevisionNotFound", err)
		}
	})

	t.Run("log", func(t *testing.T) {
		log, err := a.FileLog(ctx, "web", qvcs.TrunkBranchName, "/src/main.go", 0)
		if err != nil {
			t.Fatalf("FileLog() error = %v", err)
		}
		if len(log) != 2 || log[1].ID != first.ID {
			t.Errorf("FileLog() = %d entries, want 2 ending at the first revision", len(log))
		}
	})

	t.Run("ls", func(t *testing.T) {
		entries, err := a.ListDirectory(ctx, "web", qvcs.TrunkBranchName, "/src", 0)
		if err != nil {
			t.Fatalf("ListDirectory() error = %v", err)
		}
		if len(entries) != 1 || entries[0].Name != "main.go" || entries[0].IsDirectory {
			t.Errorf("ListDirectory() = %+v", entries)
		}
	})

	t.Run("feature branch and promotion", func(t *testing.T) {
		if _, err := a.CreateBranch(ctx, "web", qvcs.TrunkBranchName, "F", "feature", "", testutil.FixedClock().Now()); err != nil {
			t.Fatalf("CreateBranch() error = %v", err)
		}
		if _, err := a.RenameFile(ctx, "web", "F", "/src/main.go", "app.go"); err != nil {
			t.Fatalf("RenameFile() error = %v", err)
		}
		if _, err := a.Checkin(ctx, "web", "F", "/src/app.go", []byte("feature"), "", 0); err != nil {
			t.Fatalf("Checkin() error = %v", err)
		}

		cands, err := a.PromotionCandidates(ctx, "web", "F", false)
		if err != nil {
			t.Fatalf("PromotionCandidates() error = %v", err)
		}
		if len(cands) != 1 || cands[0].Type != qvcs.PromotionRenamed || !cands[0].ContentChanged {
			t.Fatalf("PromotionCandidates() = %+v", cands)
		}

		res, err := a.Promote(ctx, "web", "F", "/src/app.go")
		if err != nil {
			t.Fatalf("Promote() error = %v", err)
		}
		if !res.Promoted() {
			t.Fatalf("Promote() conflict = %v", res.Conflict)
		}
		_, content, err := a.Cat(ctx, "web", qvcs.TrunkBranchName, "/src/app.go", 0, 0)
		if err != nil {
			t.Fatalf("Cat() error = %v", err)
		}
		if string(content) != "feature" {
			t.Errorf("trunk content = %q, want feature", content)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := a.Branches(ctx, "nope")
		if !errors.Is(err, qvcs.ErrUnknownProject) {
			t.Errorf("Branches() error = %v, want ErrUnknownProject", err)
		}
	})
}

func TestQVCSApp_Locks(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "Lock")
	if _, _, err := a.CreateProject(ctx, "web"); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, _, err := a.AddFile(ctx, "web", qvcs.TrunkBranchName, "/README", []byte("r"), ""); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	lock, err := a.Lock(ctx, "web", qvcs.TrunkBranchName, "/README")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if lock.User != "alice" {
		t.Errorf("lock user = %q, want alice", lock.User)
	}
	locks, err := a.Locks(ctx, "web", qvcs.TrunkBranchName)
	if err != nil || len(locks) != 1 {
		t.Fatalf("Locks() = %d, %v; want 1 lock", len(locks), err)
	}
	if err := a.Unlock(ctx, "web", qvcs.TrunkBranchName, "/README", false); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	locks, _ = a.Locks(ctx, "web", qvcs.TrunkBranchName)
	if len(locks) != 0 {
		t.Errorf("Locks() after unlock = %d, want 0", len(locks))
	}
}

func TestQVCSApp_DeleteAndUndelete(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "Undelete")
	trunk := qvcs.TrunkBranchName

	if _, _, err := a.CreateProject(ctx, "web"); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, err := a.AddDirectory(ctx, "web", trunk, "/docs"); err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	if _, _, err := a.AddFile(ctx, "web", trunk, "/docs/readme", []byte("hi"), ""); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	fn, err := a.DeleteFile(ctx, "web", trunk, "/docs/readme")
	if err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, _, err := a.Cat(ctx, "web", trunk, "/docs/readme", 0, 0); !errors.Is(err, qvcs.ErrPathNotFound) {
		t.Errorf("Cat(deleted) error = %v, want ErrPathNotFound", err)
	}
	if _, err := a.UndeleteFile(ctx, "web", trunk, fn.FileID); err != nil {
		t.Fatalf("UndeleteFile() error = %v", err)
	}
	if _, content, err := a.Cat(ctx, "web", trunk, "/docs/readme", 0, 0); err != nil || string(content) != "hi" {
		t.Errorf("Cat(restored) = %q, %v; want hi", content, err)
	}

	loc, err := a.DeleteDirectory(ctx, "web", trunk, "/docs")
	if err != nil {
		t.Fatalf("DeleteDirectory() error = %v", err)
	}
	if _, err := a.ListDirectory(ctx, "web", trunk, "/docs", 0); !errors.Is(err, qvcs.ErrPathNotFound) {
		t.Errorf("ListDirectory(deleted) error = %v, want ErrPathNotFound", err)
	}
	if _, err := a.UndeleteDirectory(ctx, "web", trunk, loc.DirectoryID); err != nil {
		t.Fatalf("UndeleteDirectory() error = %v", err)
	}
	entries, err := a.ListDirectory(ctx, "web", trunk, "/docs", 0)
	if err != nil || len(entries) != 1 {
		t.Errorf("ListDirectory(restored) = %+v, %v; want one entry", entries, err)
	}
}

func TestQVCSApp_Tags(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "Tag")
	if _, _, err := a.CreateProject(ctx, "web"); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, err := a.CreateTag(ctx, "web", qvcs.TrunkBranchName, "v1", true); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if _, _, err := a.AddFile(ctx, "web", qvcs.TrunkBranchName, "/late.txt", []byte("x"), ""); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	view, err := a.CreateBranch(ctx, "web", qvcs.TrunkBranchName, "v1-view", "read-only-tag", "v1", testutil.FixedClock().Now())
	if err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	if entries, err := a.ListDirectory(ctx, "web", view.Name, "/", 0); err != nil || len(entries) != 0 {
		t.Errorf("tag view entries = %+v, %v; want none", entries, err)
	}

	if _, err := a.MoveTag(ctx, "web", qvcs.TrunkBranchName, "v1", 0); err != nil {
		t.Fatalf("MoveTag() error = %v", err)
	}
	if entries, err := a.ListDirectory(ctx, "web", view.Name, "/", 0); err != nil || len(entries) != 1 {
		t.Errorf("tag view entries after move = %+v, %v; want late.txt", entries, err)
	}

	tags, err := a.Tags(ctx, "web", qvcs.TrunkBranchName)
	if err != nil || len(tags) != 1 {
		t.Errorf("Tags() = %d, %v; want 1", len(tags), err)
	}
}

func TestQVCSApp_OperationLog(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "CreateProject")
	a.SetParameters("web")

	if _, _, err := a.CreateProject(ctx, "web"); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if !a.op.Persisted() {
		t.Fatal("mutating command did not persist its operation")
	}
	if _, _, err := a.CreateProject(ctx, "web"); !errors.Is(err, qvcs.ErrAlreadyExists) {
		t.Fatalf("CreateProject(duplicate) error = %v, want ErrAlreadyExists", err)
	}
	if a.op.Status != StatusError {
		t.Errorf("operation status = %q, want %q", a.op.Status, StatusError)
	}

	ops, err := a.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "CreateProject" || ops[0].Parameters != "web" {
		t.Errorf("History() = %+v", ops)
	}
}

func TestQVCSApp_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("mutating command uploads a snapshot", func(t *testing.T) {
		a := newTestApp(t, "CreateProject")
		if _, _, err := a.CreateProject(ctx, "web"); err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}
		opID := a.op.ID

		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		version, err := a.vault.SnapshotVersion(ctx, "server-1", SnapshotName)
		if err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
		if version != opID {
			t.Errorf("snapshot version = %d, want operation id %d", version, opID)
		}
		var buf bytes.Buffer
		if err := a.vault.GetSnapshot(ctx, "server-1", SnapshotName, &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("SQLite format 3")) {
			t.Errorf("snapshot is not a SQLite database (%d bytes)", buf.Len())
		}
	})

	t.Run("read-only command uploads nothing", func(t *testing.T) {
		a := newTestApp(t, "Commits")
		if _, err := a.Commits(ctx, 10); err != nil {
			t.Fatalf("Commits() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		version, _ := a.vault.SnapshotVersion(ctx, "server-1", SnapshotName)
		if version != 0 {
			t.Errorf("snapshot version = %d, want 0", version)
		}
	})
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in      string
		dir     string
		name    string
		wantErr bool
	}{
		{in: "/a/b.txt", dir: "/a", name: "b.txt"},
		{in: "b.txt", dir: "/", name: "b.txt"},
		{in: "/a/./c/../b", dir: "/a", name: "b"},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dir, name, err := splitPath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if dir != tt.dir || name != tt.name {
				t.Errorf("splitPath() = (%q, %q), want (%q, %q)", dir, name, tt.dir, tt.name)
			}
		})
	}
}
