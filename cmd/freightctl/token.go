package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"freightrates/internal/auth"
	"freightrates/internal/config"
)

func tokenCmd() *cobra.Command {
	var subject string
	var scope string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with the configured auth secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			token, err := auth.NewTokenService(&cfg.Auth).Issue(subject, scope, ttl)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), token)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, usually the calling system")
	cmd.Flags().StringVar(&scope, "scope", "parse", "scope claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from auth.token_expiry)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
