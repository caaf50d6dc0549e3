package cmd

import (
	"fmt"

	"warden/bootstrap"

	"github.com/spf13/cobra"
)

// newServeCmd creates the 'serve' subcommand
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the token-issuing server",
		Long: `Serve pages with the session's CSRF token published in the <meta> element
and already added to every form, and reject POST/PUT/PATCH/DELETE requests
whose token does not match the session's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown()

			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}

			return app.WaitForShutdown(ctx)
		},
	}
}
