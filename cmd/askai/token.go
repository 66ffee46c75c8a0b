package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whitelabel-ai/askai-service/pkg/security"
)

func newTokenCmd() *cobra.Command {
	var license string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			issuer, err := security.NewTokenIssuer(cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(license)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&license, "license", "", "licence certificate to embed in the token")
	_ = cmd.MarkFlagRequired("license")
	return cmd
}
