package qvcs

import (
	"context"
	"fmt"
)

// TrunkBranchName is the name given to every project's root branch.
const TrunkBranchName = "Trunk"

// CreateProject creates a project with an empty root directory and a trunk
// branch, all under one commit.
func (e *Engine) CreateProject(ctx context.Context, name, author string) (*Project, *Branch, error) {
	if err := validName(name); err != nil {
		return nil, nil, err
	}

	var project *Project
	var trunk *Branch
	err := e.update(ctx, func(t *txn) error {
		existing, err := t.tx.FindProjectByName(ctx, name)
		if err != nil {
			return fmt.Errorf("finding project: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("project %q: %w", name, ErrAlreadyExists)
		}

		c, err := t.newCommit(ctx, author, "create project "+name)
		if err != nil {
			return err
		}

		p, err := t.tx.InsertProject(ctx, name, c.ID)
		if err != nil {
			return fmt.Errorf("inserting project: %w", err)
		}
		rootID, err := t.tx.InsertDirectory(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("inserting root directory: %w", err)
		}
		if err := t.tx.SetProjectRoot(ctx, p.ID, rootID); err != nil {
			return fmt.Errorf("setting project root: %w", err)
		}
		p.RootDirectoryID = rootID

		b, err := t.tx.InsertBranch(ctx, &Branch{
			ProjectID: p.ID,
			Name:      TrunkBranchName,
			Type:      BranchTypeTrunk,
			CommitID:  c.ID,
		})
		if err != nil {
			return fmt.Errorf("inserting trunk: %w", err)
		}

		if _, err := t.tx.InsertDirectoryLocation(ctx, &DirectoryLocation{
			DirectoryID: rootID,
			BranchID:    b.ID,
			CommitID:    c.ID,
			Reason:      ReasonCreate,
		}); err != nil {
			return fmt.Errorf("inserting root location: %w", err)
		}

		project, trunk = p, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("project created", "project", name, "project_id", project.ID, "trunk_id", trunk.ID)
	return project, trunk, nil
}

// Project looks up a project by name.
func (e *Engine) Project(ctx context.Context, name string) (*Project, error) {
	var p *Project
	err := e.view(ctx, func(t *txn) error {
		var err error
		p, err = t.tx.FindProjectByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %q: %w", name, ErrUnknownProject)
	}
	return p, nil
}

// Projects lists every project.
func (e *Engine) Projects(ctx context.Context) ([]*Project, error) {
	var out []*Project
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.tx.ListProjects(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return out, nil
}

func (t *txn) project(ctx context.Context, id int64) (*Project, error) {
	p, err := t.tx.FindProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %d: %w", id, ErrUnknownProject)
	}
	return p, nil
}
