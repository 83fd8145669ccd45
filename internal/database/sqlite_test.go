package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"qvcs-go/internal/qvcs"
)

// newTestDB creates a new in-memory database with migrations applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// seed creates a commit, a project with a root directory and a trunk.
func seed(t *testing.T, db *SQLiteDatabase) (commit *qvcs.Commit, project *qvcs.Project, trunk *qvcs.Branch, root int64) {
	t.Helper()
	err := db.Update(context.Background(), func(tx qvcs.Tx) error {
		ctx := context.Background()
		var err error
		if commit, err = tx.InsertCommit(ctx, "alice", "init", testTime); err != nil {
			return err
		}
		if project, err = tx.InsertProject(ctx, "demo", commit.ID); err != nil {
			return err
		}
		if root, err = tx.InsertDirectory(ctx, project.ID); err != nil {
			return err
		}
		if err = tx.SetProjectRoot(ctx, project.ID, root); err != nil {
			return err
		}
		trunk, err = tx.InsertBranch(ctx, &qvcs.Branch{
			ProjectID: project.ID, Name: "Trunk", Type: qvcs.BranchTypeTrunk, CommitID: commit.ID,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
	return commit, project, trunk, root
}

func TestSQLiteDatabase_Commits(t *testing.T) {
	t.Run("newest commit is nil on an empty ledger", func(t *testing.T) {
		db := newTestDB(t)

		err := db.View(context.Background(), func(tx qvcs.Tx) error {
			c, err := tx.NewestCommit(context.Background())
			if err != nil {
				return err
			}
			if c != nil {
				t.Errorf("NewestCommit() = %+v, want nil", c)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View() error = %v", err)
		}
	})

	t.Run("ids increase and list newest first", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()

		err := db.Update(ctx, func(tx qvcs.Tx) error {
			for i := range 3 {
				if _, err := tx.InsertCommit(ctx, "alice", "c", testTime.Add(time.Duration(i)*time.Second)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		err = db.View(ctx, func(tx qvcs.Tx) error {
			all, err := tx.ListCommits(ctx, -1)
			if err != nil {
				return err
			}
			if len(all) != 3 {
				t.Fatalf("ListCommits(-1) returned %d commits, want 3", len(all))
			}
			if all[0].ID <= all[1].ID || all[1].ID <= all[2].ID {
				t.Errorf("ListCommits() ids = %d,%d,%d, want descending", all[0].ID, all[1].ID, all[2].ID)
			}
			if !all[2].CommittedAt.Equal(testTime) {
				t.Errorf("CommittedAt = %v, want %v", all[2].CommittedAt, testTime)
			}
			limited, err := tx.ListCommits(ctx, 2)
			if err != nil {
				return err
			}
			if len(limited) != 2 {
				t.Errorf("ListCommits(2) returned %d commits", len(limited))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View() error = %v", err)
		}
	})
}

func TestSQLiteDatabase_UpdateRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Update(ctx, func(tx qvcs.Tx) error {
		if _, err := tx.InsertCommit(ctx, "alice", "discarded", testTime); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want %v", err, boom)
	}

	err = db.View(ctx, func(tx qvcs.Tx) error {
		c, err := tx.NewestCommit(ctx)
		if err != nil {
			return err
		}
		if c != nil {
			t.Errorf("commit survived a failed transaction: %+v", c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestSQLiteDatabase_Branches(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	commit, project, trunk, _ := seed(t, db)

	if trunk.ParentBranchID != 0 || trunk.TagID != 0 || trunk.ViewCommitID != 0 {
		t.Errorf("trunk optional ids = %d/%d/%d, want zeros", trunk.ParentBranchID, trunk.TagID, trunk.ViewCommitID)
	}

	err := db.Update(ctx, func(tx qvcs.Tx) error {
		child, err := tx.InsertBranch(ctx, &qvcs.Branch{
			ProjectID: project.ID, Name: "feature", ParentBranchID: trunk.ID,
			Type: qvcs.BranchTypeFeature, CommitID: commit.ID,
		})
		if err != nil {
			return err
		}
		if child.ParentBranchID != trunk.ID || child.Type != qvcs.BranchTypeFeature {
			t.Errorf("child = %+v", child)
		}

		kids, err := tx.ListLiveChildBranches(ctx, trunk.ID)
		if err != nil {
			return err
		}
		if len(kids) != 1 {
			t.Fatalf("ListLiveChildBranches() = %d branches, want 1", len(kids))
		}

		if err := tx.MarkBranchDeleted(ctx, child.ID, commit.ID); err != nil {
			return err
		}
		kids, err = tx.ListLiveChildBranches(ctx, trunk.ID)
		if err != nil {
			return err
		}
		if len(kids) != 0 {
			t.Errorf("deleted branch still listed as live child")
		}

		got, err := tx.FindBranchByName(ctx, project.ID, "feature")
		if err != nil {
			return err
		}
		if got == nil || !got.Deleted || got.DeletedCommit != commit.ID {
			t.Errorf("FindBranchByName() = %+v, want deleted at %d", got, commit.ID)
		}

		missing, err := tx.FindBranch(ctx, 999)
		if err != nil {
			return err
		}
		if missing != nil {
			t.Errorf("FindBranch(999) = %+v, want nil", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestSQLiteDatabase_FileNamesSkipPromoted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	commit, project, trunk, root := seed(t, db)

	err := db.Update(ctx, func(tx qvcs.Tx) error {
		fileID, err := tx.InsertFile(ctx, project.ID, commit.ID)
		if err != nil {
			return err
		}
		if _, err := tx.InsertFileName(ctx, &qvcs.FileName{
			FileID: fileID, DirectoryID: root, BranchID: trunk.ID, Name: "a.txt",
			CommitID: commit.ID, Reason: qvcs.ReasonCreate,
		}); err != nil {
			return err
		}

		got, err := tx.LatestFileName(ctx, fileID, trunk.ID, qvcs.NoCeiling)
		if err != nil {
			return err
		}
		if got == nil || got.Name != "a.txt" || got.Reason != qvcs.ReasonCreate {
			t.Fatalf("LatestFileName() = %+v", got)
		}

		before, err := tx.LatestFileName(ctx, fileID, trunk.ID, commit.ID-1)
		if err != nil {
			return err
		}
		if before != nil {
			t.Errorf("LatestFileName() below the row's commit = %+v, want nil", before)
		}

		promoter, err := tx.InsertCommit(ctx, "alice", "promote", testTime)
		if err != nil {
			return err
		}
		if err := tx.MarkFileNamesPromoted(ctx, fileID, trunk.ID, promoter.ID); err != nil {
			return err
		}
		below, err := tx.LatestFileName(ctx, fileID, trunk.ID, promoter.ID-1)
		if err != nil {
			return err
		}
		if below == nil || below.PromotedBy != promoter.ID {
			t.Errorf("LatestFileName() below the promoting commit = %+v, want the row with PromotedBy=%d", below, promoter.ID)
		}
		hidden, err := tx.LatestFileName(ctx, fileID, trunk.ID, qvcs.NoCeiling)
		if err != nil {
			return err
		}
		if hidden != nil {
			t.Errorf("LatestFileName() returned a promoted row: %+v", hidden)
		}

		ids, err := tx.FileIDsNamedOnBranch(ctx, trunk.ID)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			t.Errorf("FileIDsNamedOnBranch() = %v, want none once promoted", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestSQLiteDatabase_DemoteRevisionOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	commit, project, trunk, _ := seed(t, db)

	err := db.Update(ctx, func(tx qvcs.Tx) error {
		fileID, err := tx.InsertFile(ctx, project.ID, commit.ID)
		if err != nil {
			return err
		}
		first, err := tx.InsertRevision(ctx, &qvcs.FileRevision{
			FileID: fileID, BranchID: trunk.ID, CommitID: commit.ID, Author: "alice",
			Compression: "none", RawSize: 1, Digest: []byte{1}, Data: []byte("a"),
		})
		if err != nil {
			return err
		}
		second, err := tx.InsertRevision(ctx, &qvcs.FileRevision{
			FileID: fileID, BranchID: trunk.ID, AncestorRevisionID: first.ID, CommitID: commit.ID,
			Author: "alice", Compression: "none", RawSize: 1, Digest: []byte{2}, Data: []byte("b"),
		})
		if err != nil {
			return err
		}

		ok, err := tx.DemoteRevision(ctx, first.ID, second.ID, []byte("script"), "none")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("first DemoteRevision() = false, want true")
		}
		ok, err = tx.DemoteRevision(ctx, first.ID, second.ID, []byte("script"), "none")
		if err != nil {
			return err
		}
		if ok {
			t.Error("second DemoteRevision() = true, want false")
		}

		tip, err := tx.LineageTip(ctx, fileID, trunk.ID)
		if err != nil {
			return err
		}
		if tip == nil || tip.ID != second.ID || !tip.IsTip() {
			t.Errorf("LineageTip() = %+v, want revision %d", tip, second.ID)
		}

		header, err := tx.NewestRevision(ctx, fileID, trunk.ID, qvcs.NoCeiling)
		if err != nil {
			return err
		}
		if header == nil || header.Data != nil || header.AncestorRevisionID != first.ID {
			t.Errorf("NewestRevision() = %+v, want header of %d", header, second.ID)
		}

		old, err := tx.FindRevision(ctx, first.ID)
		if err != nil {
			return err
		}
		if old.ReverseDeltaRevisionID != second.ID || string(old.Data) != "script" {
			t.Errorf("demoted revision = %+v", old)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	maxID, err := db.MaxOperationID(ctx)
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if maxID != 0 {
		t.Errorf("MaxOperationID() = %d on empty log, want 0", maxID)
	}

	op, err := db.CreateOperation(ctx, "Promote", `{"branch":"f"}`, testTime)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if op.Status != "pending" || !op.FinishedAt.IsZero() {
		t.Errorf("new operation = %+v", op)
	}
	if err := db.FinishOperation(ctx, op.ID, "success", testTime.Add(time.Second)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := db.ListOperations(ctx, 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Status != "success" || ops[0].FinishedAt.IsZero() {
		t.Errorf("ListOperations() = %+v", ops)
	}

	maxID, err = db.MaxOperationID(ctx)
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if maxID != op.ID {
		t.Errorf("MaxOperationID() = %d, want %d", maxID, op.ID)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	if err := db.BackupTo(ctx, dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copyDB, err := sql.Open("sqlite3", dest)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer copyDB.Close()

	var name string
	if err := copyDB.QueryRow("SELECT name FROM projects").Scan(&name); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if name != "demo" {
		t.Errorf("snapshot project = %q, want demo", name)
	}
}

func TestSQLiteDatabase_PureGo(t *testing.T) {
	db, err := NewPureGoSQLiteDatabase(filepath.Join(t.TempDir(), "purego.db"))
	if err != nil {
		t.Fatalf("NewPureGoSQLiteDatabase() error = %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	ctx := context.Background()
	err = db.Update(ctx, func(tx qvcs.Tx) error {
		_, err := tx.InsertCommit(ctx, "bob", "first", testTime)
		return err
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	err = db.View(ctx, func(tx qvcs.Tx) error {
		c, err := tx.NewestCommit(ctx)
		if err != nil {
			return err
		}
		if c == nil || c.Author != "bob" || !c.CommittedAt.Equal(testTime) {
			t.Errorf("NewestCommit() = %+v", c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}
