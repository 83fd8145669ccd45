package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qvcs-go/internal/database/sqlc"
	"qvcs-go/internal/qvcs"
)

// sqliteTx adapts the generated queries, bound to one transaction, to
// qvcs.Tx. Optional ids are stored as NULL and surface as 0.
type sqliteTx struct {
	q *sqlc.Queries
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func idOf(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}

// notFound maps sql.ErrNoRows to a nil error so lookups return (nil, nil).
func notFound(err error) (bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	return false, err
}

// Commits

func toCommit(c sqlc.Commit) *qvcs.Commit {
	return &qvcs.Commit{ID: c.ID, Author: c.Author, Message: c.Message, CommittedAt: c.CommittedAt.UTC()}
}

func (t *sqliteTx) InsertCommit(ctx context.Context, author, message string, at time.Time) (*qvcs.Commit, error) {
	c, err := t.q.InsertCommit(ctx, sqlc.InsertCommitParams{Author: author, Message: message, CommittedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return toCommit(c), nil
}

func (t *sqliteTx) FindCommit(ctx context.Context, id int64) (*qvcs.Commit, error) {
	c, err := t.q.GetCommit(ctx, id)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toCommit(c), nil
}

func (t *sqliteTx) NewestCommit(ctx context.Context) (*qvcs.Commit, error) {
	c, err := t.q.GetNewestCommit(ctx)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toCommit(c), nil
}

func (t *sqliteTx) ListCommits(ctx context.Context, limit int) ([]*qvcs.Commit, error) {
	rows, err := t.q.ListCommits(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.Commit, len(rows))
	for i := range rows {
		out[i] = toCommit(rows[i])
	}
	return out, nil
}

// Projects and identities

func toProject(p sqlc.Project) *qvcs.Project {
	return &qvcs.Project{ID: p.ID, Name: p.Name, RootDirectoryID: p.RootDirectoryID, CommitID: p.CommitID}
}

func (t *sqliteTx) InsertProject(ctx context.Context, name string, commitID int64) (*qvcs.Project, error) {
	p, err := t.q.InsertProject(ctx, sqlc.InsertProjectParams{Name: name, CommitID: commitID})
	if err != nil {
		return nil, err
	}
	return toProject(p), nil
}

func (t *sqliteTx) SetProjectRoot(ctx context.Context, projectID, directoryID int64) error {
	return t.q.UpdateProjectRootDirectory(ctx, sqlc.UpdateProjectRootDirectoryParams{RootDirectoryID: directoryID, ID: projectID})
}

func (t *sqliteTx) FindProject(ctx context.Context, id int64) (*qvcs.Project, error) {
	p, err := t.q.GetProject(ctx, id)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toProject(p), nil
}

func (t *sqliteTx) FindProjectByName(ctx context.Context, name string) (*qvcs.Project, error) {
	p, err := t.q.GetProjectByName(ctx, name)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toProject(p), nil
}

func (t *sqliteTx) ListProjects(ctx context.Context) ([]*qvcs.Project, error) {
	rows, err := t.q.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.Project, len(rows))
	for i := range rows {
		out[i] = toProject(rows[i])
	}
	return out, nil
}

func (t *sqliteTx) InsertDirectory(ctx context.Context, projectID int64) (int64, error) {
	d, err := t.q.InsertDirectory(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

func (t *sqliteTx) InsertFile(ctx context.Context, projectID, commitID int64) (int64, error) {
	f, err := t.q.InsertFile(ctx, sqlc.InsertFileParams{ProjectID: projectID, CommitID: commitID})
	if err != nil {
		return 0, err
	}
	return f.ID, nil
}

func (t *sqliteTx) FindFileProject(ctx context.Context, fileID int64) (int64, error) {
	f, err := t.q.GetFile(ctx, fileID)
	if missing, err := notFound(err); missing || err != nil {
		return 0, err
	}
	return f.ProjectID, nil
}

// Branches

func toBranch(b sqlc.Branch) *qvcs.Branch {
	return &qvcs.Branch{
		ID:             b.ID,
		ProjectID:      b.ProjectID,
		Name:           b.Name,
		ParentBranchID: idOf(b.ParentBranchID),
		Type:           qvcs.BranchType(b.BranchType),
		CommitID:       b.CommitID,
		TagID:          idOf(b.TagID),
		ViewCommitID:   idOf(b.ViewCommitID),
		Deleted:        b.Deleted,
		DeletedCommit:  idOf(b.DeletedCommitID),
	}
}

func toBranches(rows []sqlc.Branch) []*qvcs.Branch {
	out := make([]*qvcs.Branch, len(rows))
	for i := range rows {
		out[i] = toBranch(rows[i])
	}
	return out
}

func (t *sqliteTx) InsertBranch(ctx context.Context, b *qvcs.Branch) (*qvcs.Branch, error) {
	row, err := t.q.InsertBranch(ctx, sqlc.InsertBranchParams{
		ProjectID:      b.ProjectID,
		Name:           b.Name,
		ParentBranchID: nullID(b.ParentBranchID),
		BranchType:     int64(b.Type),
		CommitID:       b.CommitID,
		TagID:          nullID(b.TagID),
		ViewCommitID:   nullID(b.ViewCommitID),
	})
	if err != nil {
		return nil, err
	}
	return toBranch(row), nil
}

func (t *sqliteTx) FindBranch(ctx context.Context, id int64) (*qvcs.Branch, error) {
	b, err := t.q.GetBranch(ctx, id)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toBranch(b), nil
}

func (t *sqliteTx) FindBranchByName(ctx context.Context, projectID int64, name string) (*qvcs.Branch, error) {
	b, err := t.q.GetBranchByName(ctx, sqlc.GetBranchByNameParams{ProjectID: projectID, Name: name})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toBranch(b), nil
}

func (t *sqliteTx) ListBranches(ctx context.Context, projectID int64) ([]*qvcs.Branch, error) {
	rows, err := t.q.ListProjectBranches(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toBranches(rows), nil
}

func (t *sqliteTx) ListLiveChildBranches(ctx context.Context, branchID int64) ([]*qvcs.Branch, error) {
	rows, err := t.q.ListLiveChildBranches(ctx, nullID(branchID))
	if err != nil {
		return nil, err
	}
	return toBranches(rows), nil
}

func (t *sqliteTx) MarkBranchDeleted(ctx context.Context, branchID, commitID int64) error {
	return t.q.MarkBranchDeleted(ctx, sqlc.MarkBranchDeletedParams{DeletedCommitID: nullID(commitID), ID: branchID})
}

// Directory locations

func toDirectoryLocation(l sqlc.DirectoryLocation) *qvcs.DirectoryLocation {
	return &qvcs.DirectoryLocation{
		ID:                l.ID,
		DirectoryID:       l.DirectoryID,
		ParentDirectoryID: idOf(l.ParentDirectoryID),
		BranchID:          l.BranchID,
		Name:              l.SegmentName,
		CommitID:          l.CommitID,
		Reason:            qvcs.MutationReason(l.CreatedForReason),
		Deleted:           l.Deleted,
	}
}

func (t *sqliteTx) InsertDirectoryLocation(ctx context.Context, loc *qvcs.DirectoryLocation) (*qvcs.DirectoryLocation, error) {
	row, err := t.q.InsertDirectoryLocation(ctx, sqlc.InsertDirectoryLocationParams{
		DirectoryID:       loc.DirectoryID,
		ParentDirectoryID: nullID(loc.ParentDirectoryID),
		BranchID:          loc.BranchID,
		SegmentName:       loc.Name,
		CommitID:          loc.CommitID,
		CreatedForReason:  int64(loc.Reason),
		Deleted:           loc.Deleted,
	})
	if err != nil {
		return nil, err
	}
	return toDirectoryLocation(row), nil
}

func (t *sqliteTx) LatestDirectoryLocation(ctx context.Context, directoryID, branchID, ceiling int64) (*qvcs.DirectoryLocation, error) {
	row, err := t.q.GetLatestDirectoryLocation(ctx, sqlc.GetLatestDirectoryLocationParams{
		DirectoryID: directoryID,
		BranchID:    branchID,
		CommitID:    ceiling,
	})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toDirectoryLocation(row), nil
}

func (t *sqliteTx) DirectoryIDsByParent(ctx context.Context, parentDirectoryID, branchID, ceiling int64) ([]int64, error) {
	return t.q.ListDirectoryIDsByParent(ctx, sqlc.ListDirectoryIDsByParentParams{
		ParentDirectoryID: nullID(parentDirectoryID),
		BranchID:          branchID,
		CommitID:          ceiling,
	})
}

// File names

func toFileName(n sqlc.FileName) *qvcs.FileName {
	return &qvcs.FileName{
		ID:          n.ID,
		FileID:      n.FileID,
		DirectoryID: n.DirectoryID,
		BranchID:    n.BranchID,
		Name:        n.FileName,
		CommitID:    n.CommitID,
		Reason:      qvcs.MutationReason(n.CreatedForReason),
		Deleted:     n.Deleted,
		Promoted:    n.Promoted,
		PromotedBy:  idOf(n.PromotedCommitID),
	}
}

func (t *sqliteTx) InsertFileName(ctx context.Context, name *qvcs.FileName) (*qvcs.FileName, error) {
	row, err := t.q.InsertFileName(ctx, sqlc.InsertFileNameParams{
		FileID:           name.FileID,
		DirectoryID:      name.DirectoryID,
		BranchID:         name.BranchID,
		FileName:         name.Name,
		CommitID:         name.CommitID,
		CreatedForReason: int64(name.Reason),
		Deleted:          name.Deleted,
	})
	if err != nil {
		return nil, err
	}
	return toFileName(row), nil
}

func (t *sqliteTx) LatestFileName(ctx context.Context, fileID, branchID, ceiling int64) (*qvcs.FileName, error) {
	row, err := t.q.GetLatestFileName(ctx, sqlc.GetLatestFileNameParams{
		FileID:           fileID,
		BranchID:         branchID,
		CommitID:         ceiling,
		PromotedCommitID: nullID(ceiling),
	})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toFileName(row), nil
}

func (t *sqliteTx) FirstUnpromotedFileName(ctx context.Context, fileID, branchID int64) (*qvcs.FileName, error) {
	row, err := t.q.GetFirstUnpromotedFileName(ctx, sqlc.GetFirstUnpromotedFileNameParams{FileID: fileID, BranchID: branchID})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toFileName(row), nil
}

func (t *sqliteTx) FileIDsByDirectory(ctx context.Context, directoryID, branchID, ceiling int64) ([]int64, error) {
	return t.q.ListFileIDsByDirectory(ctx, sqlc.ListFileIDsByDirectoryParams{
		DirectoryID: directoryID,
		BranchID:    branchID,
		CommitID:    ceiling,
	})
}

func (t *sqliteTx) FileIDsNamedOnBranch(ctx context.Context, branchID int64) ([]int64, error) {
	return t.q.ListFileIDsNamedOnBranch(ctx, branchID)
}

func (t *sqliteTx) MarkFileNamesPromoted(ctx context.Context, fileID, branchID, commitID int64) error {
	return t.q.MarkFileNamesPromoted(ctx, sqlc.MarkFileNamesPromotedParams{
		PromotedCommitID: nullID(commitID),
		FileID:           fileID,
		BranchID:         branchID,
	})
}

// File revisions

func toRevision(r sqlc.FileRevision) *qvcs.FileRevision {
	return &qvcs.FileRevision{
		ID:                     r.ID,
		FileID:                 r.FileID,
		BranchID:               r.BranchID,
		AncestorRevisionID:     idOf(r.AncestorRevisionID),
		ReverseDeltaRevisionID: idOf(r.ReverseDeltaRevisionID),
		CommitID:               r.CommitID,
		Author:                 r.Author,
		Description:            r.Description,
		Compression:            r.Compression,
		RawSize:                r.RawSize,
		Digest:                 r.Digest,
		Data:                   r.RevisionData,
		Promoted:               r.Promoted,
		PromotedBy:             idOf(r.PromotedCommitID),
	}
}

func (t *sqliteTx) InsertRevision(ctx context.Context, rev *qvcs.FileRevision) (*qvcs.FileRevision, error) {
	row, err := t.q.InsertFileRevision(ctx, sqlc.InsertFileRevisionParams{
		FileID:             rev.FileID,
		BranchID:           rev.BranchID,
		AncestorRevisionID: nullID(rev.AncestorRevisionID),
		CommitID:           rev.CommitID,
		Author:             rev.Author,
		Description:        rev.Description,
		Compression:        rev.Compression,
		RawSize:            rev.RawSize,
		Digest:             rev.Digest,
		RevisionData:       rev.Data,
	})
	if err != nil {
		return nil, err
	}
	return toRevision(row), nil
}

func (t *sqliteTx) FindRevision(ctx context.Context, id int64) (*qvcs.FileRevision, error) {
	row, err := t.q.GetFileRevision(ctx, id)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toRevision(row), nil
}

func (t *sqliteTx) NewestRevision(ctx context.Context, fileID, branchID, ceiling int64) (*qvcs.FileRevision, error) {
	r, err := t.q.GetNewestFileRevision(ctx, sqlc.GetNewestFileRevisionParams{
		FileID:           fileID,
		BranchID:         branchID,
		CommitID:         ceiling,
		PromotedCommitID: nullID(ceiling),
	})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &qvcs.FileRevision{
		ID:                     r.ID,
		FileID:                 r.FileID,
		BranchID:               r.BranchID,
		AncestorRevisionID:     idOf(r.AncestorRevisionID),
		ReverseDeltaRevisionID: idOf(r.ReverseDeltaRevisionID),
		CommitID:               r.CommitID,
		Author:                 r.Author,
		Description:            r.Description,
		Compression:            r.Compression,
		RawSize:                r.RawSize,
		Digest:                 r.Digest,
		Promoted:               r.Promoted,
		PromotedBy:             idOf(r.PromotedCommitID),
	}, nil
}

func (t *sqliteTx) LineageTip(ctx context.Context, fileID, branchID int64) (*qvcs.FileRevision, error) {
	row, err := t.q.GetLineageTip(ctx, sqlc.GetLineageTipParams{FileID: fileID, BranchID: branchID})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toRevision(row), nil
}

func (t *sqliteTx) ListRevisions(ctx context.Context, fileID, branchID, ceiling int64) ([]*qvcs.FileRevision, error) {
	rows, err := t.q.ListFileRevisions(ctx, sqlc.ListFileRevisionsParams{FileID: fileID, BranchID: branchID, CommitID: ceiling})
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.FileRevision, len(rows))
	for i, r := range rows {
		out[i] = &qvcs.FileRevision{
			ID:                     r.ID,
			FileID:                 r.FileID,
			BranchID:               r.BranchID,
			AncestorRevisionID:     idOf(r.AncestorRevisionID),
			ReverseDeltaRevisionID: idOf(r.ReverseDeltaRevisionID),
			CommitID:               r.CommitID,
			Author:                 r.Author,
			Description:            r.Description,
			Compression:            r.Compression,
			RawSize:                r.RawSize,
			Digest:                 r.Digest,
			Promoted:               r.Promoted,
			PromotedBy:             idOf(r.PromotedCommitID),
		}
	}
	return out, nil
}

func (t *sqliteTx) DemoteRevision(ctx context.Context, id, reverseDeltaID int64, data []byte, compression string) (bool, error) {
	n, err := t.q.DemoteFileRevision(ctx, sqlc.DemoteFileRevisionParams{
		ReverseDeltaRevisionID: nullID(reverseDeltaID),
		Compression:            compression,
		RevisionData:           data,
		ID:                     id,
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *sqliteTx) MarkRevisionsPromoted(ctx context.Context, fileID, branchID, commitID int64) error {
	return t.q.MarkFileRevisionsPromoted(ctx, sqlc.MarkFileRevisionsPromotedParams{
		PromotedCommitID: nullID(commitID),
		FileID:           fileID,
		BranchID:         branchID,
	})
}

func (t *sqliteTx) FileIDsRevisedOnBranch(ctx context.Context, branchID int64) ([]int64, error) {
	return t.q.ListFileIDsWithRevisionsOnBranch(ctx, branchID)
}

// Promotion candidate cache

func (t *sqliteTx) UpsertPromotionCandidate(ctx context.Context, fileID, branchID, commitID int64) error {
	return t.q.UpsertPromotionCandidate(ctx, sqlc.UpsertPromotionCandidateParams{FileID: fileID, BranchID: branchID, CommitID: commitID})
}

func (t *sqliteTx) DeletePromotionCandidate(ctx context.Context, fileID, branchID int64) error {
	return t.q.DeletePromotionCandidate(ctx, sqlc.DeletePromotionCandidateParams{FileID: fileID, BranchID: branchID})
}

func (t *sqliteTx) DeleteBranchPromotionCandidates(ctx context.Context, branchID int64) error {
	return t.q.DeleteBranchPromotionCandidates(ctx, branchID)
}

func (t *sqliteTx) ListPromotionCandidates(ctx context.Context, branchID int64) ([]*qvcs.PromotionCandidate, error) {
	rows, err := t.q.ListPromotionCandidates(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.PromotionCandidate, len(rows))
	for i, r := range rows {
		out[i] = &qvcs.PromotionCandidate{FileID: r.FileID, BranchID: r.BranchID, CommitID: r.CommitID}
	}
	return out, nil
}

// Locks

func toLock(l sqlc.FileLock) *qvcs.FileLock {
	return &qvcs.FileLock{FileID: l.FileID, BranchID: l.BranchID, User: l.LockedBy, LockedAt: l.LockedAt.UTC()}
}

func (t *sqliteTx) FindLock(ctx context.Context, fileID, branchID int64) (*qvcs.FileLock, error) {
	l, err := t.q.GetFileLock(ctx, sqlc.GetFileLockParams{FileID: fileID, BranchID: branchID})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toLock(l), nil
}

func (t *sqliteTx) InsertLock(ctx context.Context, lock *qvcs.FileLock) error {
	return t.q.InsertFileLock(ctx, sqlc.InsertFileLockParams{
		FileID:   lock.FileID,
		BranchID: lock.BranchID,
		LockedBy: lock.User,
		LockedAt: lock.LockedAt.UTC(),
	})
}

func (t *sqliteTx) DeleteLock(ctx context.Context, fileID, branchID int64) error {
	return t.q.DeleteFileLock(ctx, sqlc.DeleteFileLockParams{FileID: fileID, BranchID: branchID})
}

func (t *sqliteTx) ListLocks(ctx context.Context, branchID int64) ([]*qvcs.FileLock, error) {
	rows, err := t.q.ListBranchFileLocks(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.FileLock, len(rows))
	for i := range rows {
		out[i] = toLock(rows[i])
	}
	return out, nil
}

// Tags

func toTag(tag sqlc.Tag) *qvcs.Tag {
	return &qvcs.Tag{ID: tag.ID, BranchID: tag.BranchID, Text: tag.TagText, CommitID: tag.CommitID, Moveable: tag.Moveable}
}

func (t *sqliteTx) InsertTag(ctx context.Context, tag *qvcs.Tag) (*qvcs.Tag, error) {
	row, err := t.q.InsertTag(ctx, sqlc.InsertTagParams{
		BranchID: tag.BranchID,
		TagText:  tag.Text,
		CommitID: tag.CommitID,
		Moveable: tag.Moveable,
	})
	if err != nil {
		return nil, err
	}
	return toTag(row), nil
}

func (t *sqliteTx) FindTag(ctx context.Context, id int64) (*qvcs.Tag, error) {
	row, err := t.q.GetTag(ctx, id)
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toTag(row), nil
}

func (t *sqliteTx) FindTagByText(ctx context.Context, branchID int64, text string) (*qvcs.Tag, error) {
	row, err := t.q.GetTagByText(ctx, sqlc.GetTagByTextParams{BranchID: branchID, TagText: text})
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return toTag(row), nil
}

func (t *sqliteTx) ListTags(ctx context.Context, branchID int64) ([]*qvcs.Tag, error) {
	rows, err := t.q.ListBranchTags(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]*qvcs.Tag, len(rows))
	for i := range rows {
		out[i] = toTag(rows[i])
	}
	return out, nil
}

func (t *sqliteTx) UpdateTagCommit(ctx context.Context, tagID, commitID int64) error {
	return t.q.UpdateTagCommit(ctx, sqlc.UpdateTagCommitParams{CommitID: commitID, ID: tagID})
}

var _ qvcs.Tx = (*sqliteTx)(nil)
