// Package main is the entry point for warden.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"warden/bootstrap"
	"warden/cmd"
)

// checkSecurityViolations refuses to start a production deployment with CSRF checks disabled.
func checkSecurityViolations() {
	if !strings.EqualFold(os.Getenv("WARDEN_CSRF_ENABLED"), "false") {
		return
	}

	environment := os.Getenv("ENVIRONMENT")
	wardenEnv := os.Getenv("WARDEN_ENV")

	if environment == "production" || environment == "prod" || wardenEnv == "production" {
		fmt.Fprintf(os.Stderr, "FATAL SECURITY VIOLATION: CSRF protection cannot be disabled in production environment\n")
		fmt.Fprintf(os.Stderr, "Current environment: ENVIRONMENT=%s, WARDEN_ENV=%s\n", environment, wardenEnv)
		fmt.Fprintf(os.Stderr, "To fix: Unset WARDEN_CSRF_ENABLED environment variable\n")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "WARNING: CSRF protection is DISABLED; unsafe requests will not be checked\n")
}

// run starts the server with the default configuration lookup.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Shutdown()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	return app.WaitForShutdown(ctx)
}

func main() {
	checkSecurityViolations()

	// Without arguments warden runs as a server, as `warden serve` would
	if len(os.Args) == 1 {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
