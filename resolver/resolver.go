// Package resolver follows shortened/tracking links to their canonical
// merchant URLs, bounded by hop count and timeout.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deals-bot/models"
	"deals-bot/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
)

// ErrTooManyHops means the redirect chain exceeded the hop cap, which also
// covers redirect loops.
var ErrTooManyHops = errors.New("too many redirect hops")

// Hosts that are link shorteners or click trackers rather than merchants.
// Extendable through resolver.extra_shorteners in config.yaml.
var knownShorteners = []string{
	"bit.ly",
	"bitli.in",
	"tinyurl.com",
	"amzn.to",
	"amzn.in",
	"fkrt.it",
	"fkrt.cc",
	"dl.flipkart.com",
	"cutt.ly",
	"t.co",
	"rb.gy",
	"spoo.me",
	"da.gd",
	"tiny.cc",
}

// Resolver resolves shortened URLs with bounded retries.
type Resolver struct {
	client      *http.Client
	maxHops     int
	maxAttempts int
	shorteners  map[string]bool
}

// New builds a resolver from the resolver.* config block.
func New() *Resolver {
	maxHops := viper.GetInt("resolver.max_hops")
	timeout := time.Duration(viper.GetInt("resolver.timeout_seconds")) * time.Second

	client := utils.NewHTTPClient(timeout)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return ErrTooManyHops
		}
		return nil
	}

	shorteners := make(map[string]bool, len(knownShorteners))
	for _, host := range knownShorteners {
		shorteners[host] = true
	}
	for _, host := range viper.GetStringSlice("resolver.extra_shorteners") {
		shorteners[strings.ToLower(host)] = true
	}

	return &Resolver{
		client:      client,
		maxHops:     maxHops,
		maxAttempts: viper.GetInt("resolver.max_attempts"),
		shorteners:  shorteners,
	}
}

// IsShortened reports whether the URL's host is a known shortener/tracker.
// Direct merchant links skip resolution entirely.
func (r *Resolver) IsShortened(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return r.shorteners[strings.ToLower(parsed.Hostname())]
}

// Resolve follows redirects to the canonical URL. Transient failures are
// retried with exponential backoff up to the attempt cap; a hop-cap
// violation is permanent and fails immediately.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (models.ResolvedURL, error) {
	if !r.IsShortened(rawURL) {
		return models.ResolvedURL{OriginalURL: rawURL, CanonicalURL: rawURL, HopCount: 0}, nil
	}

	var resolved models.ResolvedURL
	operation := func() error {
		result, err := r.follow(ctx, rawURL)
		if err != nil {
			if errors.Is(err, ErrTooManyHops) {
				return backoff.Permanent(err)
			}
			return err
		}
		resolved = result
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), uint64(r.maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return models.ResolvedURL{}, fmt.Errorf("resolve %s: %w", rawURL, err)
	}
	return resolved, nil
}

// follow performs a single GET through the redirect chain. GET rather than
// HEAD: several shorteners answer HEAD with 403 or an interstitial.
func (r *Resolver) follow(ctx context.Context, rawURL string) (models.ResolvedURL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return models.ResolvedURL{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	utils.SetBrowserHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		// url.Error wraps the CheckRedirect error; surface the hop cap as-is.
		if errors.Is(err, ErrTooManyHops) {
			return models.ResolvedURL{}, ErrTooManyHops
		}
		return models.ResolvedURL{}, err
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	hops := 0
	for req := resp.Request; req.Response != nil; req = req.Response.Request {
		hops++
	}

	return models.ResolvedURL{
		OriginalURL:  rawURL,
		CanonicalURL: final,
		HopCount:     hops,
	}, nil
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}
