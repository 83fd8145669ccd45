package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qvcs-go/internal/qvcs"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Carry feature branch changes up to the parent branch",
}

var promoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List promotion candidates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		full, _ := cmd.Flags().GetBool("full")

		a, err := newApp(cmd, "PromotionCandidates", args)
		if err != nil {
			return err
		}
		defer a.Close()

		cands, err := a.PromotionCandidates(cmd.Context(), project, branch, full)
		if err != nil {
			return err
		}
		for _, c := range cands {
			changed := ""
			if c.ContentChanged {
				changed = " (content)"
			}
			if !c.FastForward() {
				changed += " (diverged)"
			}
			fmt.Printf("%-14s %s%s\n", c.Type, c.Path, changed)
		}
		return nil
	},
}

func printResult(r *qvcs.PromotionResult) {
	if r.Promoted() {
		fmt.Printf("promoted  %-14s %s (commit %d)\n", r.Candidate.Type, r.Candidate.Path, r.CommitID)
		return
	}
	fmt.Printf("conflict  %-14s %s: %v\n", r.Candidate.Type, r.Candidate.Path, r.Conflict)
}

var promoteRunCmd = &cobra.Command{
	Use:   "run [PATH]",
	Short: "Promote one file, or every candidate when PATH is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "Promote", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			res, err := a.Promote(cmd.Context(), project, branch, args[0])
			if err != nil {
				return err
			}
			printResult(res)
			if !res.Promoted() {
				return res.Conflict
			}
			return nil
		}

		results, err := a.PromoteAll(cmd.Context(), project, branch)
		if err != nil {
			return err
		}
		conflicts := 0
		for _, r := range results {
			printResult(r)
			if !r.Promoted() {
				conflicts++
			}
		}
		if conflicts > 0 {
			return fmt.Errorf("%d of %d files conflicted", conflicts, len(results))
		}
		return nil
	},
}

var promoteReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Drop cached candidates that no longer differ from the parent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "ReconcileCandidates", args)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ReconcileCandidates(cmd.Context(), project, branch)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d stale candidates\n", n)
		return nil
	},
}

var promoteDismissCmd = &cobra.Command{
	Use:   "dismiss PATH",
	Short: "Remove a file from the candidate list without promoting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "DismissCandidate", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DismissCandidate(cmd.Context(), project, branch, args[0]); err != nil {
			return err
		}
		fmt.Printf("Dismissed %s\n", args[0])
		return nil
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create TEXT",
	Short: "Tag the newest commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		moveable, _ := cmd.Flags().GetBool("moveable")

		a, err := newApp(cmd, "CreateTag", args)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.CreateTag(cmd.Context(), project, branch, args[0], moveable)
		if err != nil {
			return err
		}
		fmt.Printf("Tagged commit %d as %s\n", tag.CommitID, tag.Text)
		return nil
	},
}

var tagMoveCmd = &cobra.Command{
	Use:   "move TEXT",
	Short: "Move a moveable tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "MoveTag", args)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.MoveTag(cmd.Context(), project, branch, args[0], commitFlag(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s to commit %d\n", tag.Text, tag.CommitID)
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "Tags", args)
		if err != nil {
			return err
		}
		defer a.Close()

		tags, err := a.Tags(cmd.Context(), project, branch)
		if err != nil {
			return err
		}
		for _, t := range tags {
			kind := "fixed"
			if t.Moveable {
				kind = "moveable"
			}
			fmt.Printf("%-20s commit:%-6d %s\n", t.Text, t.CommitID, kind)
		}
		return nil
	},
}

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "View the commit ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Commits", args)
		if err != nil {
			return err
		}
		defer a.Close()

		commits, err := a.Commits(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, c := range commits {
			fmt.Printf("%-6d  %s  %-12s  %s\n", c.ID, c.CommittedAt.Format(time.DateTime), c.Author, c.Message)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import a local directory tree into a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		sub, _ := cmd.Flags().GetString("path")

		a, err := newApp(cmd, "Import", args)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Import(cmd.Context(), project, branch, args[0], sub)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s: %d directories added, %d files added, %d revised, %d unchanged\n",
			args[0], res.DirectoriesAdded, res.FilesAdded, res.FilesRevised, res.FilesUnchanged)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View the operation log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History", args)
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, op := range ops {
			status := op.Status
			if op.FinishedAt.IsZero() {
				status = "running"
			}
			fmt.Printf("%-6d  %s  %-8s  %-20s  %s\n",
				op.ID, op.StartedAt.Format(time.DateTime), status, op.Operation, op.Parameters)
		}
		return nil
	},
}

func init() {
	promoteListCmd.Flags().Bool("full", false, "Scan every touched file instead of the candidate cache")
	promoteCmd.AddCommand(promoteListCmd, promoteRunCmd, promoteReconcileCmd, promoteDismissCmd)

	tagCreateCmd.Flags().Bool("moveable", false, "Allow the tag to be moved later")
	tagMoveCmd.Flags().Int64("commit", 0, "Target commit (default newest)")
	tagCmd.AddCommand(tagCreateCmd, tagMoveCmd, tagListCmd)

	commitsCmd.Flags().IntP("limit", "n", 20, "Number of commits to show; negative for all")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of operations to show")
	importCmd.Flags().String("path", "/", "Project directory to import beneath")

	rootCmd.AddCommand(promoteCmd, tagCmd, commitsCmd, importCmd, historyCmd)
}
