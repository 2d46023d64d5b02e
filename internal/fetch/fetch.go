// Package fetch downloads the deploy script. It walks a fixed chain of
// sources and stops at the first one that returns content.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Source names where the content came from.
type Source string

const (
	SourceAPI         Source = "api"
	SourceRaw         Source = "raw"
	SourceFallback    Source = "fallback"
	SourceFallbackAPI Source = "fallback_api"
)

// rawAccept asks the GitHub contents API for the file body instead of JSON.
const rawAccept = "application/vnd.github.v3.raw"

// maxScriptSize caps the response body read from any source.
const maxScriptSize = 10 << 20

// ErrNoContent is returned when every source failed or returned nothing.
var ErrNoContent = errors.New("fetch: no source returned content")

// Options configures a Fetcher.
type Options struct {
	RawURL string
	APIURL string
	// Token authenticates against the GitHub API. Empty skips the
	// authenticated sources.
	Token   string
	Timeout time.Duration

	// Primary and Secondary default to independent clients with Timeout.
	Primary   *http.Client
	Secondary *http.Client
}

// Result is a successfully fetched script.
type Result struct {
	Content []byte
	Source  Source
}

type Fetcher struct {
	opts      Options
	primary   *http.Client
	secondary *http.Client
	logger    zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	f := &Fetcher{opts: opts, primary: opts.Primary, secondary: opts.Secondary, logger: logger}
	if f.primary == nil {
		f.primary = &http.Client{Timeout: opts.Timeout}
	}
	if f.secondary == nil {
		// Separate connection pool from the primary client.
		f.secondary = &http.Client{
			Timeout:   opts.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	return f
}

// Fetch tries, in order: the API with the token, the raw URL without
// credentials, and the raw URL on the secondary client. When the secondary
// client gets a 404 and a token is configured it retries the API there.
// Non-2xx responses and empty bodies count as no content.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	var lastErr error
	try := func(client *http.Client, url string, source Source, auth bool, accept string) (*Result, int) {
		body, status, err := f.get(ctx, client, url, auth, accept)
		log := f.logger.With().Str("source", string(source)).Str("url", url).Logger()
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Msg("deploy script source failed")
			return nil, status
		}
		log.Debug().Int("status", status).Int("bytes", len(body)).Msg("deploy script source responded")
		if len(body) == 0 {
			return nil, status
		}
		return &Result{Content: body, Source: source}, status
	}

	hasToken := f.opts.Token != ""

	if hasToken && f.opts.APIURL != "" {
		if res, _ := try(f.primary, f.opts.APIURL, SourceAPI, true, rawAccept); res != nil {
			return res, nil
		}
	}

	if res, _ := try(f.primary, f.opts.RawURL, SourceRaw, false, ""); res != nil {
		return res, nil
	}

	res, status := try(f.secondary, f.opts.RawURL, SourceFallback, hasToken, "")
	if res != nil {
		return res, nil
	}
	if status == http.StatusNotFound && hasToken && f.opts.APIURL != "" {
		if res, _ := try(f.secondary, f.opts.APIURL, SourceFallbackAPI, true, rawAccept); res != nil {
			return res, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoContent, lastErr)
	}
	return nil, ErrNoContent
}

// get returns the body of a 2xx response. Other statuses are reported
// through the status value with a nil body and nil error.
func (f *Fetcher) get(ctx context.Context, client *http.Client, url string, auth bool, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "deploy-installer")
	if auth {
		req.Header.Set("Authorization", "token "+f.opts.Token)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxScriptSize))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
