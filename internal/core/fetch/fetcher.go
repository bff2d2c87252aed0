// Package fetch downloads the public storefront metadata document of each shop
// domain. A failing domain never aborts the batch; it is logged and skipped.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ExpectedKeys is the number of top-level keys of a genuine metadata
// document. Anything else is an error page.
const ExpectedKeys = 15

// Response is a successfully fetched metadata document.
type Response struct {
	Domain string
	Body   map[string]any
}

type Config struct {
	// Delay is the pause after each attempt. With Concurrency above 1 it is
	// the minimum interval between any two requests.
	Delay       time.Duration
	Timeout     time.Duration
	Concurrency int
	UserAgent   string
}

type Fetcher struct {
	client      *resty.Client
	endpoint    func(domain string) string
	sleep       func(ctx context.Context, d time.Duration) error
	delay       time.Duration
	concurrency int
	log         *slog.Logger
}

type Option func(*Fetcher)

// WithEndpoint overrides how the metadata URL is built from a domain.
func WithEndpoint(fn func(domain string) string) Option {
	return func(f *Fetcher) {
		f.endpoint = fn
	}
}

// WithSleep replaces the pause taken after each sequential attempt.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = fn
	}
}

func MetadataURL(domain string) string {
	return "https://" + domain + "/meta.json"
}

func New(cfg Config, log *slog.Logger, opts ...Option) *Fetcher {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.SetHeader("Accept", "application/json")

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	f := &Fetcher{
		client:      client,
		endpoint:    MetadataURL,
		sleep:       sleepCtx,
		delay:       cfg.Delay,
		concurrency: concurrency,
		log:         log,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves and validates the metadata document of one domain. Every
// failure is reported as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, domain string) (Response, error) {
	url := f.endpoint(domain)

	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		kind := KindNetwork
		if isTimeout(err) {
			kind = KindTimeout
		}
		return Response{}, &FetchError{Kind: kind, Domain: domain, URL: url, Err: err}
	}

	body, err := decode(res.Body())
	if err != nil {
		return Response{}, &FetchError{
			Kind:   KindDecode,
			Domain: domain,
			URL:    url,
			Status: res.StatusCode(),
			Err:    err,
		}
	}

	if len(body) != ExpectedKeys {
		return Response{}, &FetchError{
			Kind:   KindUnexpectedShape,
			Domain: domain,
			URL:    url,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("%w: %d top-level keys, expected %d", ErrUnexpectedShape, len(body), ExpectedKeys),
		}
	}

	return Response{Domain: domain, Body: body}, nil
}

// FetchAll attempts every domain and returns the successful documents in the
// order of domains. Only context cancellation makes it fail.
func (f *Fetcher) FetchAll(ctx context.Context, domains []string) ([]Response, error) {
	if f.concurrency > 1 {
		return f.fetchParallel(ctx, domains)
	}

	responses := make([]Response, 0, len(domains))
	for _, domain := range domains {
		res, err := f.Fetch(ctx, domain)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("fetch interrupted: %w", ctxErr)
			}
			f.logSkip(err)
		} else {
			responses = append(responses, res)
		}

		if err := f.sleep(ctx, f.delay); err != nil {
			return nil, fmt.Errorf("fetch interrupted: %w", err)
		}
	}

	f.log.Info("Fetched shop metadata",
		slog.Int("attempted", len(domains)),
		slog.Int("succeeded", len(responses)))

	return responses, nil
}

// fetchParallel spreads the domains over a bounded set of workers sharing one
// limiter, so the request rate stays at one per delay overall.
func (f *Fetcher) fetchParallel(ctx context.Context, domains []string) ([]Response, error) {
	limit := rate.Inf
	if f.delay > 0 {
		limit = rate.Every(f.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	slots := make([]*Response, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, domain := range domains {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return fmt.Errorf("fetch interrupted: %w", err)
			}

			res, err := f.Fetch(gctx, domain)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return fmt.Errorf("fetch interrupted: %w", ctxErr)
				}
				f.logSkip(err)
				return nil
			}

			slots[i] = &res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped in the worker
	}

	responses := make([]Response, 0, len(domains))
	for _, r := range slots {
		if r != nil {
			responses = append(responses, *r)
		}
	}

	f.log.Info("Fetched shop metadata",
		slog.Int("attempted", len(domains)),
		slog.Int("succeeded", len(responses)),
		slog.Int("concurrency", f.concurrency))

	return responses, nil
}

func (f *Fetcher) logSkip(err error) {
	fe, ok := AsFetchError(err)
	if !ok {
		f.log.Info("Skipping domain", slog.Any("error", err))
		return
	}

	attrs := []any{
		slog.String("domain", fe.Domain),
		slog.String("url", fe.URL),
		slog.String("reason", string(fe.Kind)),
		slog.Any("error", fe.Err),
	}
	if fe.Status != 0 {
		attrs = append(attrs, slog.Int("status", fe.Status))
	}

	f.log.Info("Skipping domain", attrs...)
}

func decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("decode metadata: body is not a JSON object")
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
