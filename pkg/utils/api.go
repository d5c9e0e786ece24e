package utils

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/pkg/errors"
)

type Options struct {
	UserAgent        string
	Timeout          time.Duration
	RetryCount       int
	RetryDelay       time.Duration
	CloudflareBypass bool
	// Sleep waits between attempts; it must return early with ctx.Err()
	// when ctx is done. Defaults to Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// API is the shared request layer. Every page the portal serves goes through
// Get, which retries with a linear backoff.
type API struct {
	client     *resty.Client
	retryCount int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewAPI(opts Options) *API {
	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return &API{
		client:     client,
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
		sleep:      sleep,
	}
}

// Get fetches url with the session cookie and returns the body of the first
// 2xx response. Before retry n it waits RetryDelay*n. When every attempt
// fails the error is a KindFetch data.Error carrying the last status.
func (a *API) Get(ctx context.Context, url, cookie string) ([]byte, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= a.retryCount; attempt++ {
		if attempt > 0 {
			wait := a.retryDelay * time.Duration(attempt)
			slog.WarnContext(ctx, "request failed, retrying",
				"url", url, "attempt", attempt, "of", a.retryCount, "wait", wait, "err", lastErr)
			if err := a.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		req := a.client.R().SetContext(ctx)
		if cookie != "" {
			req.SetHeader("Cookie", cookie)
		}
		resp, err := req.Get(url)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			lastErr, lastStatus = errors.WithStack(err), 0
			continue
		}
		if !resp.IsSuccess() {
			lastErr = fmt.Errorf("unexpected status: %s", resp.Status())
			lastStatus = resp.StatusCode()
			continue
		}
		return resp.Body(), nil
	}

	return nil, &data.Error{Kind: data.KindFetch, Op: "get " + url, Status: lastStatus, Err: lastErr}
}

// IsInvalidSession reports whether err is a terminal fetch failure caused by
// the portal rejecting the session.
func IsInvalidSession(err error) bool {
	if !data.IsKind(err, data.KindFetch) {
		return false
	}
	status := data.StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
