package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"doclife/internal/app"
	"doclife/internal/auth"
	"doclife/internal/config"
	"doclife/internal/database/migration"
	"doclife/internal/queue"
)

func newSweepCmd(cfg *config.AppConfig) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Dispose of every document whose retention has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if async {
				client := asynq.NewClient(queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
				defer client.Close()
				info, err := queue.EnqueueSweep(ctx, client, "docctl", time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (id %s, queue %s)\n", info.Type, info.ID, info.Queue)
				return nil
			}

			a, err := app.Build(ctx, cfg, logger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Sweeper.RunRetentionSweep(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "Enqueue the sweep for cmd/worker instead of running it here")
	return cmd
}

func newJanitorCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "janitor",
		Short: "Remove expired download artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, logger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Janitor.Run(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newMigrateCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migration.EnsureMigrated(cmd.Context(), cfg.Database, logger(cfg))
			},
		},
		&cobra.Command{
			Use:   "down N",
			Short: "Roll back the last N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				return migration.Down(cfg.Database, n, logger(cfg))
			},
		},
	)
	return cmd
}

func newTokenCmd(cfg *config.AppConfig) *cobra.Command {
	var sub, role, tenant string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			token, expires, err := issuer.Issue(auth.Principal{Subject: sub, Role: r, TenantID: tenant})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"token":      token,
				"expires_at": expires.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "Principal subject")
	cmd.Flags().StringVar(&role, "role", "USER", "ADMIN or USER")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to AUTH_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("sub")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
