package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"timebox/internal/config"
	"timebox/internal/jsonlog"
	"timebox/internal/lifecycle"
	"timebox/internal/notify"
	"timebox/internal/storage"
	"timebox/internal/update"
)

type app struct {
	cfg     config.Config
	repo    *storage.SQLiteRepository
	logger  *jsonlog.Logger
	logFile *os.File
	engine  *notify.Engine
	service *lifecycle.Service
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "timebox",
		Short:         "Task manager with enforced creation windows and hard deadlines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), configPath, true)
			if err != nil {
				return err
			}
			defer a.close()

			// Catch-up pass before the UI takes over, so tasks that ran
			// out while the process was down expire immediately.
			if _, err := a.service.Sweep(cmd.Context()); err != nil {
				a.logger.Error("startup sweep failed", map[string]any{"error": err.Error()})
			}

			var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
			if a.cfg.DesktopNotifications {
				notifier = update.ExecDesktopNotifier{}
			}
			m := update.NewModelWithConfig(a.service, a.engine, notifier, update.UIConfig{
				DesktopNotifications: a.cfg.DesktopNotifications,
				SweepInterval:        time.Duration(a.cfg.SweepIntervalMinutes) * time.Minute,
				StatsDays:            7,
			})

			program := tea.NewProgram(m, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.timebox/config.yaml)")
	root.AddCommand(newSweepCmd(&configPath))
	root.AddCommand(newStatsCmd(&configPath))
	return root
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue tasks and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			expired, err := a.service.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d task(s)\n", expired)
			return nil
		},
	}
}

func newStatsCmd(configPath *string) *cobra.Command {
	var days int

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print completion stats for the last N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.service.StatsLastDays(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"last %dd: %d finished, %d unfinished, %d attempts, %.0f%% completion\n",
				days, stats.Finished, stats.Unfinished, stats.TotalAttempts, stats.CompletionRate*100)
			return nil
		},
	}
	statsCmd.Flags().IntVar(&days, "days", 7, "range in days")
	return statsCmd
}

// bootstrap loads config and opens the shared stack. withEngine controls
// whether the in-process notification engine runs; headless commands skip it.
func bootstrap(ctx context.Context, configPath string, withEngine bool) (*app, error) {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger := jsonlog.Discard()
	var logFile *os.File
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		logFile, err = os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger = jsonlog.New(logFile)
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.MigrateUp(repo.DB()); err != nil {
		repo.Close()
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &app{cfg: cfg, repo: repo, logger: logger, logFile: logFile}

	opts := lifecycle.Options{
		Logger:       logger,
		ReminderLead: time.Duration(cfg.ReminderLeadMinutes) * time.Minute,
	}
	if withEngine {
		a.engine = notify.NewEngine(cfg.NotifyBuffer)
		a.engine.Start()
		opts.Notifier = a.engine
	}

	svc, err := lifecycle.New(ctx, repo, opts)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init lifecycle: %w", err)
	}
	a.service = svc
	return a, nil
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.repo != nil {
		a.repo.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
