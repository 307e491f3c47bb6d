package cli

import (
	"fmt"
	"time"

	"indian-airlines-ivr/internal/auth/processor"
	"indian-airlines-ivr/internal/config"
	"indian-airlines-ivr/internal/observability"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	c := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the protected routes (reads JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var auth config.AuthConfig
			if err := env.Parse(&auth); err != nil {
				return fmt.Errorf("failed to read auth configuration: %w", err)
			}

			p := processor.New(auth.JWTSecret, observability.NewNopLogger())
			token, err := p.GenerateOperatorToken(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	c.Flags().StringVarP(&subject, "subject", "s", "", "Operator the token is issued to (required)")
	c.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = c.MarkFlagRequired("subject")
	return c
}
