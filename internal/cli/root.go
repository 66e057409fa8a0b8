// Package cli implements infradashctl, the offline admin tool that works
// directly against the store file.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"infradash/internal/backup"
	"infradash/internal/config"
	"infradash/internal/database"
)

type options struct {
	configFile string
	dbPath     string
	backupPath string
	verbose    bool
}

// env is what a command needs once flags are resolved.
type env struct {
	cfg   *config.Config
	store *database.Store
	out   io.Writer
}

func Execute() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "infradashctl",
		Short: "infradash store administration",
		Long: `infradashctl manages an infradash store file without the web server:
port lookups, backups, the admin user and orphan cleanup.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
			logrus.SetOutput(os.Stderr)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "config.yaml", "Configuration file path")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Store file (overrides config)")
	root.PersistentFlags().StringVar(&opts.backupPath, "backups", "", "Backup archive (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newPortsCmd(opts),
		newBackupCmd(opts),
		newUserCmd(opts),
		newPurgeCmd(opts),
	)
	return root
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.Database.Path = database.ResolvePath(o.dbPath, o.dbPath)
		cfg.Database.BackupPath = filepath.Join(filepath.Dir(cfg.Database.Path), "backups.db")
	}
	if o.backupPath != "" {
		cfg.Database.BackupPath = o.backupPath
	}
	return cfg, nil
}

// withStore opens the store for the duration of fn.
func (o *options) withStore(cmd *cobra.Command, fn func(*env) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(&env{cfg: cfg, store: store, out: cmd.OutOrStdout()})
}

// withArchive additionally opens the backup archive.
func (o *options) withArchive(cmd *cobra.Command, fn func(*env, *backup.Archive) error) error {
	return o.withStore(cmd, func(e *env) error {
		archive, err := backup.Open(e.cfg.Database.BackupPath)
		if err != nil {
			return err
		}
		defer archive.Close()
		return fn(e, archive)
	})
}
