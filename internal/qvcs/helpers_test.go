package qvcs_test

import (
	"context"
	"errors"
	"testing"

	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/testutil"
)

type fixture struct {
	ctx     context.Context
	e       *qvcs.Engine
	clock   *testutil.StubClock
	project *qvcs.Project
	trunk   *qvcs.Branch
}

func newFixture(t *testing.T, opts qvcs.Options) *fixture {
	t.Helper()
	e, clock := testutil.NewTestEngine(t, opts)
	return setupFixture(t, e, clock)
}

func setupFixture(t *testing.T, e *qvcs.Engine, clock *testutil.StubClock) *fixture {
	t.Helper()
	ctx := context.Background()
	p, trunk, err := e.CreateProject(ctx, "proj", "alice")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return &fixture{ctx: ctx, e: e, clock: clock, project: p, trunk: trunk}
}

func (f *fixture) root() int64 { return f.project.RootDirectoryID }

func (f *fixture) addFile(t *testing.T, branchID, dirID int64, name, content string) (*qvcs.FileName, *qvcs.FileRevision) {
	t.Helper()
	fn, rev, err := f.e.AddFile(f.ctx, qvcs.AddFileRequest{
		BranchID:    branchID,
		DirectoryID: dirID,
		Name:        name,
		Content:     []byte(content),
		Author:      "alice",
	})
	if err != nil {
		t.Fatalf("AddFile(%q) error = %v", name, err)
	}
	return fn, rev
}

func (f *fixture) appendAs(t *testing.T, author string, branchID, fileID int64, content string) *qvcs.FileRevision {
	t.Helper()
	rev, err := f.e.AppendRevision(f.ctx, qvcs.AppendRequest{
		BranchID: branchID,
		FileID:   fileID,
		Content:  []byte(content),
		Author:   author,
	})
	if err != nil {
		t.Fatalf("AppendRevision(%q) error = %v", content, err)
	}
	return rev
}

func (f *fixture) append(t *testing.T, branchID, fileID int64, content string) *qvcs.FileRevision {
	t.Helper()
	return f.appendAs(t, "alice", branchID, fileID, content)
}

func (f *fixture) branch(t *testing.T, parentID int64, name string, typ qvcs.BranchType) *qvcs.Branch {
	t.Helper()
	b, err := f.e.CreateBranch(f.ctx, qvcs.CreateBranchRequest{
		ParentBranchID: parentID,
		Name:           name,
		Type:           typ,
		Author:         "alice",
	})
	if err != nil {
		t.Fatalf("CreateBranch(%q) error = %v", name, err)
	}
	return b
}

func (f *fixture) content(t *testing.T, branchID, fileID int64) string {
	t.Helper()
	_, data, err := f.e.FileContent(f.ctx, branchID, fileID, qvcs.NoCeiling)
	if err != nil {
		t.Fatalf("FileContent(branch %d, file %d) error = %v", branchID, fileID, err)
	}
	return string(data)
}

func (f *fixture) hydrate(t *testing.T, revisionID int64) string {
	t.Helper()
	data, err := f.e.Hydrate(f.ctx, revisionID)
	if err != nil {
		t.Fatalf("Hydrate(%d) error = %v", revisionID, err)
	}
	return string(data)
}

func (f *fixture) tip(t *testing.T, branchID, fileID int64) *qvcs.FileRevision {
	t.Helper()
	rev, err := f.e.TipRevision(f.ctx, branchID, fileID, qvcs.NoCeiling)
	if err != nil {
		t.Fatalf("TipRevision(branch %d, file %d) error = %v", branchID, fileID, err)
	}
	return rev
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
