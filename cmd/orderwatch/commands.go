package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/orderwatch/internal/bootstrap"
	"github.com/creamcroissant/orderwatch/internal/config"
	"github.com/creamcroissant/orderwatch/internal/job"
	"github.com/creamcroissant/orderwatch/internal/migrations"
	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/repository"
	"github.com/creamcroissant/orderwatch/internal/repository/sqlite"
)

func init() {
	// Migrate
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "Using DB path: %s\n", cfg.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	rootCmd.AddCommand(migrateCmd)

	// History
	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded verification sessions",
	}

	var (
		historyLimit   int
		historyOutcome string
		historyFormat  string
	)
	var historyListCmd = &cobra.Command{
		Use:   "list [orderID]",
		Short: "List recent verification sessions, optionally for one order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repository.WatchSessionFilter{Limit: historyLimit, Outcome: historyOutcome}
			if len(args) == 1 {
				id, err := order.ValidateID(args[0])
				if err != nil {
					return fmt.Errorf("%w: %q", err, args[0])
				}
				filter.OrderID = id
			}
			return withStore(func(ctx context.Context, _ *config.Config, store *sqlite.Store) error {
				sessions, err := store.WatchSessions().List(ctx, filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if done, err := writeStructured(out, historyFormat, sessions); done {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SESSION\tORDER\tOUTCOME\tSTATUS\tFETCHES\tFINISHED\tERROR")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
						s.ID, s.OrderID, s.Outcome, dash(s.FinalStatus), s.Fetches,
						time.Unix(s.FinishedAt, 0).Local().Format(time.DateTime), dash(s.ErrorMessage))
				}
				return tw.Flush()
			})
		},
	}
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of sessions")
	historyListCmd.Flags().StringVar(&historyOutcome, "outcome", "", "filter by outcome (settled, timed_out, errored, cancelled)")
	historyListCmd.Flags().StringVarP(&historyFormat, "output", "o", "table", "output format: table, json or yaml")

	var historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than history.retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, store *sqlite.Store) error {
				logger := newLogger(cfg, os.Stderr)
				cleanup := job.NewHistoryCleanupJob(store.WatchSessions(), cfg.History.Retention, logger)
				return cleanup.Run(ctx)
			})
		},
	}

	historyCmd.AddCommand(historyListCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func withStore(fn func(ctx context.Context, cfg *config.Config, store *sqlite.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openMigrated(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return fn(ctx, cfg, sqlite.NewStore(db))
}

func openMigrated(path string) (*sql.DB, error) {
	db, err := bootstrap.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
