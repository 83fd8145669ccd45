package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"qvcs-go/internal/qvcs"
)

// readInput reads the file named by args[i], or stdin when it is absent
// or "-".
func readInput(args []string, i int) ([]byte, error) {
	if len(args) > i && args[i] != "-" {
		return os.ReadFile(args[i])
	}
	return io.ReadAll(os.Stdin)
}

func isBinary(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0 || !utf8.Valid(b)
}

func commitFlag(cmd *cobra.Command) int64 {
	c, _ := cmd.Flags().GetInt64("commit")
	return c
}

// dir command
var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Manage directories",
}

var dirAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "AddDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.AddDirectory(cmd.Context(), project, branch, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Added directory %s (id %d)\n", args[0], loc.DirectoryID)
		return nil
	},
}

var dirLsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		p := "/"
		if len(args) > 0 {
			p = args[0]
		}
		a, err := newApp(cmd, "ListDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ListDirectory(cmd.Context(), project, branch, p, commitFlag(cmd))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDirectory {
				fmt.Printf("%s/\n", e.Name)
			} else {
				fmt.Println(e.Name)
			}
		}
		return nil
	},
}

var dirRenameCmd = &cobra.Command{
	Use:   "rename PATH NEWNAME",
	Short: "Rename a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "RenameDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.RenameDirectory(cmd.Context(), project, branch, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var dirMoveCmd = &cobra.Command{
	Use:   "move PATH NEWPARENT",
	Short: "Move a directory under a new parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "MoveDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.MoveDirectory(cmd.Context(), project, branch, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Moved %s into %s\n", args[0], args[1])
		return nil
	},
}

var dirRmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Delete a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "DeleteDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.DeleteDirectory(cmd.Context(), project, branch, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted directory %s (id %d)\n", args[0], loc.DirectoryID)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var dirUndeleteCmd = &cobra.Command{
	Use:   "undelete ID",
	Short: "Restore a deleted directory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "UndeleteDirectory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.UndeleteDirectory(cmd.Context(), project, branch, id)
		if err != nil {
			return err
		}
		fmt.Printf("Restored directory %d as %s\n", id, loc.Name)
		return nil
	},
}

// file command
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files",
}

var fileAddCmd = &cobra.Command{
	Use:   "add PATH [SOURCE]",
	Short: "Add a file, reading its content from SOURCE or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		content, err := readInput(args, 1)
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}
		desc, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd, "AddFile", args)
		if err != nil {
			return err
		}
		defer a.Close()

		fn, rev, err := a.AddFile(cmd.Context(), project, branch, args[0], content, desc)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (file %d, revision %d)\n", args[0], fn.FileID, rev.ID)
		return nil
	},
}

var fileCheckinCmd = &cobra.Command{
	Use:   "checkin PATH [SOURCE]",
	Short: "Record a new revision, reading its content from SOURCE or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		content, err := readInput(args, 1)
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}
		desc, _ := cmd.Flags().GetString("message")
		base, _ := cmd.Flags().GetInt64("base")

		a, err := newApp(cmd, "Checkin", args)
		if err != nil {
			return err
		}
		defer a.Close()

		rev, err := a.Checkin(cmd.Context(), project, branch, args[0], content, desc, base)
		if err != nil {
			if qvcs.IsRetryable(err) {
				return fmt.Errorf("%w (fetch the new tip and retry)", err)
			}
			return err
		}
		fmt.Printf("Checked in %s as revision %d\n", args[0], rev.ID)
		return nil
	},
}

var fileCatCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Print a file's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		revision, _ := cmd.Flags().GetInt64("revision")
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cmd, "Cat", args)
		if err != nil {
			return err
		}
		defer a.Close()

		_, content, err := a.Cat(cmd.Context(), project, branch, args[0], commitFlag(cmd), revision)
		if err != nil {
			return err
		}
		if !force && term.IsTerminal(int(os.Stdout.Fd())) && isBinary(content) {
			return fmt.Errorf("%s is binary; redirect the output or pass --force", args[0])
		}
		_, err = os.Stdout.Write(content)
		return err
	},
}

var fileLogCmd = &cobra.Command{
	Use:   "log PATH",
	Short: "View a file's revision history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "FileLog", args)
		if err != nil {
			return err
		}
		defer a.Close()

		revs, err := a.FileLog(cmd.Context(), project, branch, args[0], commitFlag(cmd))
		if err != nil {
			return err
		}
		for _, r := range revs {
			fmt.Printf("r%-6d  commit:%-6d  branch:%-4d  %-12s  %8d  %s\n",
				r.ID, r.CommitID, r.BranchID, r.Author, r.RawSize, r.Description)
		}
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "DeleteFile", args)
		if err != nil {
			return err
		}
		defer a.Close()

		fn, err := a.DeleteFile(cmd.Context(), project, branch, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s (file %d)\n", args[0], fn.FileID)
		return nil
	},
}

var fileMvCmd = &cobra.Command{
	Use:   "mv PATH DIRECTORY",
	Short: "Move a file into another directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "MoveFile", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.MoveFile(cmd.Context(), project, branch, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Moved %s into %s\n", args[0], args[1])
		return nil
	},
}

var fileRenameCmd = &cobra.Command{
	Use:   "rename PATH NEWNAME",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "RenameFile", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.RenameFile(cmd.Context(), project, branch, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var fileUndeleteCmd = &cobra.Command{
	Use:   "undelete ID",
	Short: "Restore a deleted file by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "UndeleteFile", args)
		if err != nil {
			return err
		}
		defer a.Close()

		fn, err := a.UndeleteFile(cmd.Context(), project, branch, id)
		if err != nil {
			return err
		}
		fmt.Printf("Restored file %d as %s\n", id, fn.Name)
		return nil
	},
}

// lock commands
var lockCmd = &cobra.Command{
	Use:   "lock [PATH]",
	Short: "Lock a file on a branch, or list locks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "Lock", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 {
			locks, err := a.Locks(cmd.Context(), project, branch)
			if err != nil {
				return err
			}
			for _, l := range locks {
				fmt.Printf("file:%-6d  %-12s  %s\n", l.FileID, l.User, l.LockedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		lock, err := a.Lock(cmd.Context(), project, branch, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Locked %s for %s\n", args[0], lock.User)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock PATH",
	Short: "Release a file lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, branch, err := target(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cmd, "Unlock", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Unlock(cmd.Context(), project, branch, args[0], force); err != nil {
			return err
		}
		fmt.Printf("Unlocked %s\n", args[0])
		return nil
	},
}

func init() {
	dirLsCmd.Flags().Int64("commit", 0, "View the directory as of a commit")
	dirCmd.AddCommand(dirAddCmd, dirLsCmd, dirRenameCmd, dirMoveCmd, dirRmCmd, dirUndeleteCmd)

	fileAddCmd.Flags().StringP("message", "m", "", "Revision description")
	fileCheckinCmd.Flags().StringP("message", "m", "", "Revision description")
	fileCheckinCmd.Flags().Int64("base", 0, "Tip revision the new content was based on")
	fileCatCmd.Flags().Int64("commit", 0, "View the file as of a commit")
	fileCatCmd.Flags().Int64("revision", 0, "Print a specific revision from the file's history")
	fileCatCmd.Flags().Bool("force", false, "Write binary content to a terminal")
	fileLogCmd.Flags().Int64("commit", 0, "View the history as of a commit")
	fileCmd.AddCommand(fileAddCmd, fileCheckinCmd, fileCatCmd, fileLogCmd, fileRmCmd, fileMvCmd, fileRenameCmd, fileUndeleteCmd)

	unlockCmd.Flags().Bool("force", false, "Release a lock held by another user")

	rootCmd.AddCommand(dirCmd, fileCmd, lockCmd, unlockCmd)
}
