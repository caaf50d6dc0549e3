package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// injectionReport summarises what the injector did to one page
type injectionReport struct {
	Source         string `json:"source" yaml:"source"`
	Active         bool   `json:"active" yaml:"active"`
	Token          string `json:"token,omitempty" yaml:"token,omitempty"`
	FormsAugmented int    `json:"forms_augmented" yaml:"forms_augmented"`
	Request        string `json:"request,omitempty" yaml:"request,omitempty"`
	Status         int    `json:"status,omitempty" yaml:"status,omitempty"`
}

// maskToken keeps enough of a token to recognise it in logs
func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}

// printReport writes r to w in the selected output format
func printReport(w io.Writer, r injectionReport) error {
	switch outputFormat {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	}

	if quiet {
		return nil
	}
	if !r.Active {
		warningColor.Fprintf(w, "No CSRF token found in %s; nothing injected\n", r.Source)
		return nil
	}
	successColor.Fprintf(w, "CSRF token %s found in %s\n", r.Token, r.Source)
	infoColor.Fprintf(w, "  forms augmented: %d\n", r.FormsAugmented)
	if r.Request != "" {
		statusColor := successColor
		if r.Status >= 400 {
			statusColor = errorColor
		}
		fmt.Fprintf(w, "  request: %s -> ", r.Request)
		statusColor.Fprintf(w, "%d\n", r.Status)
	}
	return nil
}
