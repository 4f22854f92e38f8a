package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"billsync/internal/app"
	"billsync/internal/backup"
	"billsync/internal/config"
	"billsync/internal/snapshot"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "BackupCreate", "SyncOnce").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// loadArtifact returns artifact bytes either from a local file or, when
// fromArchive is set, from the backup archive by handle.
func loadArtifact(cmd *cobra.Command, a *app.App, arg string, fromArchive bool) ([]byte, error) {
	if fromArchive {
		artifact, err := a.Service().RetrieveArtifact(cmd.Context(), arg)
		if err != nil {
			return nil, fmt.Errorf("retrieving backup: %w", err)
		}
		return artifact, nil
	}

	artifact, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("reading backup file: %w", err)
	}
	return artifact, nil
}

// unlockIfEncrypted prompts for a passphrase and unlocks the encryptor
// when the artifact needs decryption. Returns nil for plain artifacts.
func unlockIfEncrypted(a *app.App, artifact []byte) (backup.DecryptionContext, error) {
	if !backup.EncryptedArtifact(artifact) {
		return nil, nil
	}
	enc := a.Encryptor()
	if enc == nil {
		return nil, fmt.Errorf("backup is encrypted but encryption is not configured")
	}

	pass, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return nil, err
	}

	decryptCtx, err := enc.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking key: %w", err)
	}
	return decryptCtx, nil
}

// printResult renders a validation result: the hard failure, or the
// advisory warnings.
func printResult(result *snapshot.Result) {
	if result.Failure != nil {
		fmt.Printf("Validation failed [%s]: %s\n", result.Failure.Kind, result.Failure.Message)
		return
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning [%s]: %s\n", w.Kind, w.Message)
	}
}

var rootCmd = &cobra.Command{
	Use:   "billsync",
	Short: "Billing data backup and sync",
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

		// Generate a new device ID
		deviceID := uuid.New().String()

		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Store:     %s\n", cfg.Store.Type)
		fmt.Printf("Archive:   %s\n", cfg.Archive.Type)
		fmt.Printf("Remote:    %s\n", cfg.Sync.Remote.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "KeysInit")
		if err != nil {
			return err
		}
		defer a.Close()

		enc := a.Encryptor()
		if enc == nil {
			return fmt.Errorf("encryption is disabled in config; set [encryption] type")
		}
		if enc.IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		pass, err := promptPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := enc.Setup(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup of the current dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().CreateBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup created: %s (%d bytes)\n", entry.Name, entry.Size)
		if entry.Caveat != "" {
			fmt.Printf("Note: %s\n", entry.Caveat)
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupList")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service().ListBackups(cmd.Context())
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No backups found.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %s  %d bytes\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Name,
				e.Size,
			)
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete backups beyond the retention cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupPrune")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().Prune(cmd.Context()); err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		fmt.Println("Retention cap applied.")
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Validate and restore backups",
}

var restoreValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a backup without touching local data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromArchive, _ := cmd.Flags().GetBool("from-archive")

		a, err := newApp(cmd, "RestoreValidate")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, err := loadArtifact(cmd, a, args[0], fromArchive)
		if err != nil {
			return err
		}

		decryptCtx, err := unlockIfEncrypted(a, artifact)
		if err != nil {
			return err
		}

		result, err := a.Service().ValidateArtifact(artifact, decryptCtx)
		if err != nil {
			return err
		}

		printResult(result)
		if result.OK {
			m := result.Snapshot.Metadata
			fmt.Printf("Backup is valid: %d customers, %d bills, %d payments, %d items\n",
				m.Counts.Customers, m.Counts.Bills, m.Counts.Payments, m.Counts.Items)
		}
		return nil
	},
}

var restoreApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Replace local data with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromArchive, _ := cmd.Flags().GetBool("from-archive")
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cmd, "RestoreApply")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, err := loadArtifact(cmd, a, args[0], fromArchive)
		if err != nil {
			return err
		}

		decryptCtx, err := unlockIfEncrypted(a, artifact)
		if err != nil {
			return err
		}

		result, err := a.Service().ValidateArtifact(artifact, decryptCtx)
		if err != nil {
			return err
		}
		printResult(result)
		if !result.OK {
			return fmt.Errorf("backup failed validation")
		}
		if len(result.Warnings) > 0 && !force {
			return fmt.Errorf("backup has warnings; re-run with --force to restore anyway")
		}

		if err := a.Service().Applier().Apply(cmd.Context(), result.Snapshot); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Println("Restore complete. Local data replaced.")
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local data with the cloud",
}

var syncOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sync cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SyncOnce")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SyncOnce(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Println("Sync complete.")
		return nil
	},
}

var syncStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run periodic sync until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SyncStart")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Periodic sync running. Ctrl-C to stop.")
		return a.RunSyncScheduler(ctx)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPruneCmd)

	restoreCmd.AddCommand(restoreValidateCmd)
	restoreCmd.AddCommand(restoreApplyCmd)
	restoreValidateCmd.Flags().Bool("from-archive", false, "Treat FILE as an archive handle")
	restoreApplyCmd.Flags().Bool("from-archive", false, "Treat FILE as an archive handle")
	restoreApplyCmd.Flags().Bool("force", false, "Restore even when validation reports warnings")

	syncCmd.AddCommand(syncOnceCmd)
	syncCmd.AddCommand(syncStartCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(syncCmd)
}
