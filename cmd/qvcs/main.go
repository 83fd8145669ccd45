package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"qvcs-go/internal/app"
	"qvcs-go/internal/config"
	"qvcs-go/internal/database"
	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a QVCSApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateBranch", "Promote").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.QVCSApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	author, _ := cmd.Flags().GetString("author")

	a, err := app.NewQVCSApp(cmd.Context(), cfg, operation, author)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	a.SetParameters(strings.Join(args, " "))
	return a, nil
}

// target returns the --project and --branch flags.
func target(cmd *cobra.Command) (string, string, error) {
	project, _ := cmd.Flags().GetString("project")
	branch, _ := cmd.Flags().GetString("branch")
	if project == "" {
		return "", "", fmt.Errorf("--project is required")
	}
	return project, branch, nil
}

func defaultAuthor() string {
	if u := os.Getenv("QVCS_AUTHOR"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

var rootCmd = &cobra.Command{
	Use:          "qvcs",
	Short:        "Branch-aware version control server administration",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		serverID := uuid.New().String()
		cfg := config.NewConfig(serverID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Server ID: %s\n", serverID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		fmt.Println("Run 'qvcs db migrate' to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Server ID:   %s\n", cfg.ServerID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Compression: %s\n", cfg.Revisions.Compression)
		fmt.Printf("Lock:        required=%t\n", cfg.Revisions.RequireLock)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage snapshot vaults",
}

var configVaultValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify every configured vault is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Vaults) == 0 {
			fmt.Println("No vaults configured.")
			return nil
		}
		for _, vc := range cfg.Vaults {
			v, err := vault.NewVaultFromConfig(cmd.Context(), vc)
			if err != nil {
				return fmt.Errorf("vault %s: %w", vc.Name, err)
			}
			if err := v.ValidateSetup(cmd.Context()); err != nil {
				return fmt.Errorf("vault %s: %w", vc.Name, err)
			}
			fmt.Printf("Vault %s: ok\n", vc.Name)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.ServerID)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.MigrateUp(); err != nil {
			return err
		}
		fmt.Printf("Database at %s is up to date\n", db.Path())
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.ServerID)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		st, err := db.SchemaStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Database:       %s\n", db.Path())
		fmt.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)
		if err := st.Err(); err != nil {
			return err
		}
		fmt.Println("Database schema is current")
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project with its trunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "CreateProject", args)
		if err != nil {
			return err
		}
		defer a.Close()

		p, trunk, err := a.CreateProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (id %d) with branch %s\n", p.Name, p.ID, trunk.Name)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListProjects", args)
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.Projects(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range projects {
			fmt.Printf("%d\t%s\n", p.ID, p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("author", defaultAuthor(), "Author recorded on commits")
	rootCmd.PersistentFlags().StringP("project", "p", "", "Project name")
	rootCmd.PersistentFlags().StringP("branch", "b", qvcs.TrunkBranchName, "Branch name")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultValidateCmd)

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(projectCmd)
}
