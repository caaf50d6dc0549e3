package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"warden/config"
	"warden/inject"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

const defaultTimeout = 30 * time.Second

// newFetchCmd creates the 'fetch' subcommand
func newFetchCmd() *cobra.Command {
	var (
		method       string
		data         string
		contentType  string
		timeout      time.Duration
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <page-url> <request-url>",
		Short: "Load a page, then send a request carrying its CSRF token",
		Long: `Load page-url with a cookie jar, read the CSRF token from its meta element
and send the request to request-url with the token in the X-CSRF-Token header.
A relative request-url is resolved against page-url. The response body is
written to stdout.`,
		Example: `  warden fetch http://localhost:8080/ /api/echo --data '{"hello":"world"}'
  warden fetch http://localhost:8080/ /api/echo --method DELETE`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}

			pageURL, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid page URL: %w", err)
			}
			ref, err := url.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid request URL: %w", err)
			}
			target := pageURL.ResolveReference(ref)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			jar, err := cookiejar.New(nil)
			if err != nil {
				return fmt.Errorf("failed to create cookie jar: %w", err)
			}
			client := &http.Client{Jar: jar}

			var s *spinner.Spinner
			if showProgress && outputFormat == outputText && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Loading " + pageURL.String()
				s.Start()
			}

			page, err := loadPage(ctx, client, pageURL.String())

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return err
			}

			doc, err := inject.ParseDocument(bytes.NewReader(page))
			if err != nil {
				return err
			}

			injector := inject.NewInjector(inject.Options{
				MetaName:   cfg.CSRF.MetaName,
				HeaderName: cfg.CSRF.HeaderName,
				FieldName:  cfg.CSRF.FieldName,
			})
			res := injector.Init(doc, nil, client.Transport)

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}
			req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), target.String(), body)
			if err != nil {
				return fmt.Errorf("failed to build request: %w", err)
			}
			if data != "" {
				req.Header.Set("Content-Type", contentType)
			}

			resp, err := res.Client(client).Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), io.LimitReader(resp.Body, maxPageSize)); err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if err := printReport(cmd.ErrOrStderr(), injectionReport{
				Source:         pageURL.String(),
				Active:         res.Active,
				Token:          maskToken(res.Token),
				FormsAugmented: res.FormsAugmented,
				Request:        req.Method + " " + target.String(),
				Status:         resp.StatusCode,
			}); err != nil {
				return err
			}

			if resp.StatusCode >= 400 {
				return fmt.Errorf("%s %s: %s", req.Method, target, resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "HTTP method for the request")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "Content-Type sent with --data")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for the whole exchange")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")

	return cmd
}

// loadPage GETs a page through client so its session cookie lands in the jar
func loadPage(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load page: %s", resp.Status)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	if len(page) > maxPageSize {
		return nil, fmt.Errorf("page exceeds maximum size of %d bytes", maxPageSize)
	}
	return page, nil
}
