package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"warden/config"
	"warden/inject"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

const maxPageSize = 10 * 1024 * 1024 // 10MB

// newInjectCmd creates the 'inject' subcommand
func newInjectCmd() *cobra.Command {
	var (
		token   string
		outFile string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "inject <file|->",
		Short: "Add the page's CSRF token to every form in an HTML file",
		Long: `Read an HTML page, take the token from its <meta name="csrf-token"> element
(or from --token) and append a hidden csrf_token input to every form that lacks
one. The result is written to stdout or --out; a report goes to stderr.`,
		Example: `  warden inject page.html > page.out.html
  curl -s https://app.example/ | warden inject - -o json
  warden inject --token "$TOKEN" --publish template.html --out page.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}

			source := args[0]
			page, err := readPage(cmd, source)
			if err != nil {
				return err
			}

			doc, err := inject.ParseDocument(bytes.NewReader(page))
			if err != nil {
				return err
			}

			var src inject.TokenSource
			if token != "" {
				src = inject.StaticToken(token)
				if publish && !inject.PublishToken(doc, cfg.CSRF.MetaName, token) {
					warningColor.Fprintln(cmd.ErrOrStderr(), "Document has no <head>; token not published")
				}
			}

			injector := inject.NewInjector(inject.Options{
				MetaName:   cfg.CSRF.MetaName,
				HeaderName: cfg.CSRF.HeaderName,
				FieldName:  cfg.CSRF.FieldName,
			})
			res := injector.Init(doc, src, nil)

			if err := writePage(cmd, outFile, doc); err != nil {
				return err
			}

			return printReport(cmd.ErrOrStderr(), injectionReport{
				Source:         source,
				Active:         res.Active,
				Token:          maskToken(res.Token),
				FormsAugmented: res.FormsAugmented,
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Use this token instead of the page's meta element")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&publish, "publish", false, "Also write --token into the page's meta element")

	return cmd
}

func readPage(cmd *cobra.Command, source string) ([]byte, error) {
	var r io.Reader
	if source == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()
		r = f
	}

	page, err := io.ReadAll(io.LimitReader(r, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if len(page) > maxPageSize {
		return nil, fmt.Errorf("%s exceeds maximum page size of %d bytes", source, maxPageSize)
	}
	return page, nil
}

func writePage(cmd *cobra.Command, outFile string, doc *html.Node) error {
	if outFile == "" {
		return inject.RenderDocument(cmd.OutOrStdout(), doc)
	}

	var buf bytes.Buffer
	if err := inject.RenderDocument(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(outFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	return nil
}
