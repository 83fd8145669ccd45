package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qvcs-go/internal/qvcs"
)

// branch command
var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a branch under --parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _, err := target(cmd)
		if err != nil {
			return err
		}
		parent, _ := cmd.Flags().GetString("parent")
		kind, _ := cmd.Flags().GetString("type")
		tag, _ := cmd.Flags().GetString("tag")
		asOfRaw, _ := cmd.Flags().GetString("as-of")

		var asOf time.Time
		if asOfRaw != "" {
			if asOf, err = time.Parse(time.RFC3339, asOfRaw); err != nil {
				return fmt.Errorf("parsing --as-of: %w", err)
			}
		}

		a, err := newApp(cmd, "CreateBranch", args)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.CreateBranch(cmd.Context(), project, parent, args[0], kind, tag, asOf)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s branch %s (id %d) at commit %d\n", b.Type, b.Name, b.ID, b.CommitID)
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "ListBranches", args)
		if err != nil {
			return err
		}
		defer a.Close()

		branches, err := a.Branches(cmd.Context(), project)
		if err != nil {
			return err
		}
		names := make(map[int64]string, len(branches))
		for _, b := range branches {
			names[b.ID] = b.Name
		}
		for _, b := range branches {
			state := ""
			if b.Deleted {
				state = "  [deleted]"
			}
			fmt.Printf("%-20s  %-15s  parent:%-15s  commit:%d%s\n", b.Name, b.Type, names[b.ParentBranchID], b.CommitID, state)
		}
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a branch with no live children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "DeleteBranch", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteBranch(cmd.Context(), project, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted branch %s\n", args[0])
		return nil
	},
}

func init() {
	branchCreateCmd.Flags().String("parent", qvcs.TrunkBranchName, "Parent branch")
	branchCreateCmd.Flags().String("type", qvcs.BranchTypeFeature.String(), "feature, release, read-only-tag or read-only-date")
	branchCreateCmd.Flags().String("tag", "", "Tag on the parent viewed by a read-only-tag branch")
	branchCreateCmd.Flags().String("as-of", "", "RFC 3339 time viewed by a read-only-date branch")

	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchDeleteCmd)
	rootCmd.AddCommand(branchCmd)
}
