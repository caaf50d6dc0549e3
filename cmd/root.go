// Package cmd provides the warden command-line interface.
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Global flags
var (
	configFile   string
	noColor      bool
	quiet        bool
	outputFormat string
)

// Output formats for reports
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// NewRootCmd creates the warden command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "warden",
		Short: "Carry CSRF tokens from pages into requests and forms",
		Long: `warden reads the CSRF token a server publishes in a page's
<meta name="csrf-token"> element and makes sure it travels back: as the
X-CSRF-Token header on requests, and as a hidden csrf_token field on forms.

It also runs a server that issues those tokens and rejects state-changing
requests that do not return them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			switch outputFormat {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("invalid --output %q: must be text, json or yaml", outputFormat)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "Report format: text, json or yaml")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInjectCmd())
	rootCmd.AddCommand(newFetchCmd())

	return rootCmd
}
