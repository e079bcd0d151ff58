// Package main is the admin CLI for the content data core: schema
// migration, health status, and moderation of pending submissions.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/config"
	"github.com/lorekeep/lorekeep/dbmanager"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manager, err := dbmanager.New(cfg)
	if err != nil {
		return fmt.Errorf("start data core: %w", err)
	}
	defer manager.Close()

	rootCmd := &cobra.Command{
		Use:   "lorekeep",
		Short: "Administer the content database",
	}
	rootCmd.AddCommand(newMigrateCommand(manager))
	rootCmd.AddCommand(newStatusCommand(manager))
	rootCmd.AddCommand(newPendingCommand(manager))
	rootCmd.AddCommand(newApproveCommand(manager))
	rootCmd.AddCommand(newRejectCommand(manager))

	return rootCmd.Execute()
}

func newMigrateCommand(manager *dbmanager.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager.Migrate(context.Background()); err != nil {
				return err
			}
			color.Green("schema up to date (%s)", manager.Dialect().Name())
			return nil
		},
	}
}

func newStatusCommand(manager *dbmanager.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine health and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := manager.Provider().HealthCheck(ctx); err != nil {
				color.Red("engine unreachable: %v", err)
				return nil
			}
			stats := manager.Provider().Stats()
			entries, _ := manager.Entries().Count(ctx).Get()
			color.Green("engine healthy (%s)", manager.Dialect().Name())
			fmt.Printf("connections: %d open, %d in use\n", stats.OpenConnections, stats.InUse)
			fmt.Printf("entries: %d\n", entries)
			return nil
		},
	}
}

func newPendingCommand(manager *dbmanager.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List submissions awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := manager.Submissions().ListPending(context.Background()).Get()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("review queue is empty")
				return nil
			}
			for _, s := range pending {
				fmt.Printf("#%d entry=%d v%d %s (%s)\n",
					s.ID, s.EntryID, s.Version, s.Slug, s.SubmittedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newApproveCommand(manager *dbmanager.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <entry-id> <submission-id> <approver-id>",
		Short: "Approve a submission and make it the current version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ok, err := manager.Submissions().Approve(context.Background(), ids[0], ids[1], ids[2]).Get()
			if err != nil {
				return err
			}
			if ok {
				color.Green("submission %d is now current for entry %d", ids[1], ids[0])
			}
			return nil
		},
	}
}

func newRejectCommand(manager *dbmanager.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <submission-id> <approver-id>",
		Short: "Reject and archive a submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ok, err := manager.Submissions().Reject(context.Background(), ids[0], ids[1]).Get()
			if err != nil {
				return err
			}
			if ok {
				color.Yellow("submission %d rejected", ids[0])
			}
			return nil
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids[i] = id
	}
	return ids, nil
}
