package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/snap-companion/internal/export"
	"github.com/ramonehamilton/snap-companion/internal/storage"
)

func newExportCmd(a *app) *cobra.Command {
	flags := &filterFlags{}
	var (
		format    string
		out       string
		pretty    bool
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matches to CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := export.Format(format)
			if f != export.FormatCSV && f != export.FormatJSON {
				return fmt.Errorf("unsupported export format: %s", format)
			}

			return a.withStore(func(store *storage.Service) error {
				if out == "-" {
					if f != export.FormatCSV {
						return errors.New("only CSV can be written to stdout")
					}
					_, err := export.ExportMatchesCSV(cmd.Context(), cmd.OutOrStdout(), store, flags.filter())
					return err
				}

				path := out
				if path == "" {
					path = export.GenerateFilename("matches", f, time.Now())
				}
				n, err := export.NewExporter(store, export.Options{
					Format:     f,
					FilePath:   path,
					PrettyJSON: pretty,
					Overwrite:  overwrite,
					Filter:     flags.filter(),
				}).Export(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d matches to %s\n", n, path)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Export format (csv, json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file; - for stdout (default matches_<timestamp>.<format>)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import matches from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer func() {
				_ = file.Close() //nolint:errcheck // read-only
			}()

			return a.withStore(func(store *storage.Service) error {
				res, err := export.ImportMatchesCSV(cmd.Context(), file, store)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d matches, skipped %d already recorded\n", res.Imported, res.Skipped)
				return err
			})
		},
	}
}

func (a *app) backupManager() (*storage.BackupManager, error) {
	path, err := a.settings.DatabasePath()
	if err != nil {
		return nil, err
	}
	return storage.NewBackupManager(path, a.logger), nil
}

// encryption returns the flag password, falling back to the configured one.
func (a *app) encryption(password string) *storage.EncryptionConfig {
	if password == "" {
		password = a.settings.Backup.Password
	}
	if password == "" {
		return nil
	}
	return storage.DefaultEncryptionConfig(password)
}

func newBackupCmd(a *app) *cobra.Command {
	var (
		dir      string
		password string
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the match database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.backupManager()
			if err != nil {
				return err
			}
			cfg := storage.DefaultBackupConfig()
			cfg.Dir = a.backupDir(dir)
			cfg.Encryption = a.encryption(password)

			path, err := manager.Backup(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)

			if keep := a.settings.Backup.Keep; keep > 0 {
				if _, err := manager.Prune(cfg.Dir, keep); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Backup directory (default from config, else <db dir>/backups)")
	cmd.Flags().StringVar(&password, "password", "", "Encrypt the backup with this password")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.backupManager()
			if err != nil {
				return err
			}
			backups, err := manager.ListBackups(a.backupDir(dir))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(w, "No backups found.")
				return nil
			}
			for _, b := range backups {
				enc := ""
				if b.Encrypted {
					enc = " (encrypted)"
				}
				fmt.Fprintf(w, "%s  %10d bytes  %s%s\n", b.ModTime.Format(time.RFC3339), b.Size, b.Path, enc)
			}
			return nil
		},
	})
	return cmd
}

func (a *app) backupDir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.settings.Backup.Dir
}

func newRestoreCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the match database with a backup",
		Long:  "Replace the match database with a backup. Stop any running tracker first; the current database is kept beside it with an .old suffix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.backupManager()
			if err != nil {
				return err
			}
			if err := manager.Restore(args[0], a.encryption(password)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password for an encrypted backup")
	return cmd
}

func newCleanupEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-events",
		Short: "Remove duplicate match events and create the dedup index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				removed, err := store.CleanupDuplicateEvents(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicate events\n", removed)
				return nil
			})
		},
	}
}
