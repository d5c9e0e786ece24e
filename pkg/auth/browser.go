package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/pkg/errors"
)

const (
	maxChallengeAttempts = 3
	tokenCookie          = "token"

	selEnroll      = `.enroll_box`
	selOpenLogin   = `.enroll_box a[onclick*='code: 1']`
	selLoginName   = `input[name="login_name"]`
	selPassword    = `input[name="login_password"]`
	selChallenge   = `#login_captche_img`
	selAnswer      = `input[name="check_code"]`
	selSubmit      = `.login_btn`
	selRefreshCode = `.captcha_box .refresh`
)

type BrowserOptions struct {
	BaseURL   string
	UserAgent string
	ExecPath  string
	Show      bool
	Timeout   time.Duration
}

// Browser logs in by driving a Chrome instance through the portal's login
// form.
type Browser struct {
	opts   BrowserOptions
	solver Solver
	now    func() time.Time
}

func NewBrowser(opts BrowserOptions, solver Solver) *Browser {
	return &Browser{opts: opts, solver: solver, now: time.Now}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("lang", "zh-CN,zh"),
	)
	if b.opts.Show {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	return opts
}

func (b *Browser) Login(ctx context.Context, account data.Account) (*data.Credential, error) {
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	slog.InfoContext(ctx, "opening login form", "user_id", account.ID, "email", account.Email)
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(b.opts.BaseURL),
		chromedp.WaitVisible(selEnroll, chromedp.ByQuery),
		chromedp.Click(selOpenLogin, chromedp.ByQuery),
		chromedp.WaitVisible(selLoginName, chromedp.ByQuery),
		chromedp.SendKeys(selLoginName, account.Email, chromedp.ByQuery),
		chromedp.SendKeys(selPassword, account.Password, chromedp.ByQuery),
	)
	if err != nil {
		return nil, b.failure(ctx, account, "open login form", err)
	}

	for attempt := 1; attempt <= maxChallengeAttempts; attempt++ {
		cookies, err := b.attempt(taskCtx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			slog.WarnContext(ctx, "login attempt failed", "user_id", account.ID, "attempt", attempt, "err", err)
		} else if cred := credentialFrom(account, cookies, b.now()); cred != nil {
			slog.InfoContext(ctx, "login succeeded", "user_id", account.ID, "attempt", attempt)
			return cred, nil
		} else {
			slog.WarnContext(ctx, "challenge answer rejected", "user_id", account.ID, "attempt", attempt)
		}

		if attempt < maxChallengeAttempts {
			_ = chromedp.Run(taskCtx,
				chromedp.Click(selRefreshCode, chromedp.ByQuery),
				chromedp.Sleep(time.Second),
			)
		}
	}
	return nil, b.failure(ctx, account, fmt.Sprintf("no session after %d challenge attempts", maxChallengeAttempts), nil)
}

// attempt answers one challenge and returns the cookies present afterwards.
func (b *Browser) attempt(ctx context.Context) ([]*network.Cookie, error) {
	var png []byte
	if err := chromedp.Run(ctx,
		chromedp.Sleep(time.Second),
		chromedp.WaitVisible(selChallenge, chromedp.ByQuery),
		chromedp.Screenshot(selChallenge, &png, chromedp.ByQuery),
	); err != nil {
		return nil, errors.Wrap(err, "capture challenge")
	}

	answer, err := b.solver.Solve(ctx, png)
	if err != nil {
		return nil, err
	}

	var cookies []*network.Cookie
	err = chromedp.Run(ctx,
		chromedp.SetValue(selAnswer, "", chromedp.ByQuery),
		chromedp.SendKeys(selAnswer, answer, chromedp.ByQuery),
		chromedp.Click(selSubmit, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "submit login form")
	}
	return cookies, nil
}

func (b *Browser) failure(ctx context.Context, account data.Account, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return data.NewError(data.KindAuth, fmt.Sprintf("login user %d: %s", account.ID, op), err)
}

// credentialFrom builds the credential from the browser cookies, or returns
// nil when the session token is absent.
func credentialFrom(account data.Account, cookies []*network.Cookie, now time.Time) *data.Credential {
	var token *network.Cookie
	for _, c := range cookies {
		if c.Name == tokenCookie {
			token = c
			break
		}
	}
	if token == nil {
		return nil
	}

	cred := &data.Credential{
		UserID:    account.ID,
		UserEmail: account.Email,
		Token:     token.Value,
		Cookie:    cookieHeader(cookies),
		Timestamp: float64(now.UnixNano()) / 1e9,
	}
	if token.Expires > 0 {
		cred.SetExpiry(int64(token.Expires))
	}
	return cred
}

func cookieHeader(cookies []*network.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
