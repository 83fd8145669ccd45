package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"qvcs-go/internal/qvcs"
)

// ImportResult counts what an import changed.
type ImportResult struct {
	DirectoriesAdded int
	FilesAdded       int
	FilesRevised     int
	FilesUnchanged   int
}

// Import copies the local tree at rawPath into a branch beneath the
// project directory sub, creating sub if needed. New files are added;
// existing files get a new revision when their content differs.
func (a *QVCSApp) Import(ctx context.Context, project, branch, rawPath, sub string) (*ImportResult, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	root, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	entries, err := a.fsmgr.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	res := &ImportResult{}
	err = a.mutate(ctx, func() error {
		base, err := a.ensureDirectory(ctx, b, path.Clean("/"+sub), res)
		if err != nil {
			return err
		}
		dirs := map[string]int64{".": base}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			parentRel, name := path.Split(entry.RelPath)
			parentRel = path.Clean(strings.TrimSuffix(parentRel, "/"))
			if parentRel == "" {
				parentRel = "."
			}
			parentID, ok := dirs[parentRel]
			if !ok {
				// parent was skipped, e.g. ignored
				continue
			}

			if entry.IsDir {
				id, err := a.importDirectory(ctx, b, parentID, name, res)
				if err != nil {
					return fmt.Errorf("importing %s: %w", entry.RelPath, err)
				}
				dirs[entry.RelPath] = id
				continue
			}

			content, err := a.fsmgr.ReadFile(root, entry.RelPath)
			if err != nil {
				return err
			}
			if err := a.importFile(ctx, b, parentID, name, content, res); err != nil {
				return fmt.Errorf("importing %s: %w", entry.RelPath, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("import finished", "path", root.String(), "branch", b.Name,
		"dirs_added", res.DirectoriesAdded, "files_added", res.FilesAdded,
		"files_revised", res.FilesRevised, "files_unchanged", res.FilesUnchanged)
	return res, nil
}

// ensureDirectory resolves p on b, creating missing components.
func (a *QVCSApp) ensureDirectory(ctx context.Context, b *qvcs.Branch, p string, res *ImportResult) (int64, error) {
	loc, err := a.engine.ResolveDirectory(ctx, b.ID, "/", qvcs.NoCeiling)
	if err != nil {
		return 0, err
	}
	id := loc.DirectoryID
	for _, name := range strings.Split(strings.Trim(p, "/"), "/") {
		if name == "" {
			continue
		}
		if id, err = a.importDirectory(ctx, b, id, name, res); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (a *QVCSApp) importDirectory(ctx context.Context, b *qvcs.Branch, parentID int64, name string, res *ImportResult) (int64, error) {
	children, err := a.engine.ChildrenOf(ctx, b.ID, parentID, qvcs.NoCeiling)
	if err != nil {
		return 0, err
	}
	for _, c := range children {
		if c.Name == name {
			return c.DirectoryID, nil
		}
	}
	loc, err := a.engine.AddDirectory(ctx, b.ID, parentID, name, a.author)
	if err != nil {
		return 0, err
	}
	res.DirectoriesAdded++
	return loc.DirectoryID, nil
}

func (a *QVCSApp) importFile(ctx context.Context, b *qvcs.Branch, dirID int64, name string, content []byte, res *ImportResult) error {
	fn, err := a.engine.ResolveFileIn(ctx, b.ID, dirID, name, qvcs.NoCeiling)
	if errors.Is(err, qvcs.ErrPathNotFound) {
		if _, _, err := a.engine.AddFile(ctx, qvcs.AddFileRequest{
			BranchID:    b.ID,
			DirectoryID: dirID,
			Name:        name,
			Content:     content,
			Author:      a.author,
			Description: "import",
		}); err != nil {
			return err
		}
		res.FilesAdded++
		return nil
	}
	if err != nil {
		return err
	}

	tip, current, err := a.engine.FileContent(ctx, b.ID, fn.FileID, qvcs.NoCeiling)
	if err != nil {
		return err
	}
	if bytes.Equal(current, content) {
		res.FilesUnchanged++
		return nil
	}
	if _, err := a.engine.AppendRevision(ctx, qvcs.AppendRequest{
		BranchID:       b.ID,
		FileID:         fn.FileID,
		Content:        content,
		Author:         a.author,
		Description:    "import",
		BaseRevisionID: tip.ID,
	}); err != nil {
		return err
	}
	res.FilesRevised++
	return nil
}
