package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/orderwatch/internal/auth/token"
	"github.com/creamcroissant/orderwatch/internal/bootstrap"
)

func init() {
	var (
		subject  string
		upstream string
		scopes   []string
		ttl      time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an API token signed with auth.signing_key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := bootstrap.NewTokenManager(cfg.Auth)
			if err != nil {
				return err
			}
			if manager == nil {
				return fmt.Errorf("auth.signing_key is not configured")
			}
			signed, claims, err := manager.Issue(token.IssueInput{
				Subject:  subject,
				Scopes:   scopes,
				Upstream: upstream,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s, scopes %v\n", claims.ExpiresAt.Time.Local().Format(time.DateTime), claims.Scopes)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	issueCmd.Flags().StringVar(&upstream, "upstream", "", "bearer token to forward to the order service")
	issueCmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant (default orders:read, orders:watch)")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = issueCmd.MarkFlagRequired("subject")

	tokenCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(tokenCmd)
}
