package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fireant/internal/middleware"
)

func newTokenCmd(g *globals) *cobra.Command {
	var (
		subject string
		issuer  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 bearer token for the HTTP API",
		Long:  "Issue an HS256 bearer token signed with JWT_SECRET, for use with the server's /v1 routes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !g.cfg.AuthEnabled() {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			token, err := middleware.IssueHS256(g.cfg.JWTSecret, issuer, subject, ttl)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if g.output == outputJSON {
				return printJSON(w, map[string]string{
					"token":      token,
					"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
				})
			}
			_, err = fmt.Fprintln(w, token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
