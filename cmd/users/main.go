// Command users manages the bot's authorized-user list from the command
// line, against the same backend the bot is configured with.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"invoicedrop/internal/allowlist"
	"invoicedrop/internal/config"
	"invoicedrop/internal/redis"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "users",
		Short:         "Manage the bot's authorized users",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(addCmd(), removeCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <user-id>",
		Short: "Authorize a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			allow, err := openAllowlist(ctx)
			if err != nil {
				return err
			}
			if err := allow.Add(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("User %s added\n", args[0])
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Revoke a user's access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			allow, err := openAllowlist(ctx)
			if err != nil {
				return err
			}
			if err := allow.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("User %s removed\n", args[0])
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show authorized users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			allow, err := openAllowlist(ctx)
			if err != nil {
				return err
			}
			users, err := allow.List(ctx)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No authorized users")
				return nil
			}
			fmt.Printf("Authorized users (%d):\n", len(users))
			for i, u := range users {
				fmt.Printf("  %d. %s\n", i+1, u)
			}
			return nil
		},
	}
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func openAllowlist(ctx context.Context) (allowlist.Allowlist, error) {
	cfg := config.LoadConfig()
	switch cfg.Allowlist.Backend {
	case "redis":
		client := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return allowlist.NewRedis(client), nil
	case "postgres":
		db, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		pg := allowlist.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("allowlist backend %q is not shared; set ALLOWLIST_BACKEND to redis or postgres", cfg.Allowlist.Backend)
	}
}
