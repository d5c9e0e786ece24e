package services

import (
	"context"
	"log/slog"
	"os"

	"github.com/kerbaras/novels/pkg/auth"
	"github.com/kerbaras/novels/pkg/config"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/sources"
	"github.com/kerbaras/novels/pkg/utils"
	"github.com/pkg/errors"
)

// Controller wires the stores, the portal source and the login flow from one
// configuration.
type Controller struct {
	cfg         config.Config
	source      sources.Source
	progress    ProgressStore
	credentials *data.CredentialFile
	session     *Session
	downloader  *Downloader
	closer      func() error
}

func NewController(cfg config.Config) (*Controller, error) {
	api := utils.NewAPI(utils.Options{
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.TimeoutDuration(),
		RetryCount:       cfg.RetryCount,
		RetryDelay:       cfg.RetryDelayDuration(),
		CloudflareBypass: cfg.CloudflareBypass,
	})
	source := sources.NewUAA(api, cfg.BaseURL)

	solver := auth.NewVisionSolver(auth.VisionOptions{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.TimeoutDuration(),
	})
	browser := auth.NewBrowser(auth.BrowserOptions{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		ExecPath:  cfg.Browser.ExecPath,
		Show:      cfg.Browser.Show,
		Timeout:   cfg.BrowserTimeout(),
	}, solver)

	credentials := data.NewCredentialFile(cfg.CookiesPath())
	session := NewSession(credentials, browser, cfg.AccountsPath(), cfg.LoginDelayDuration())

	c := &Controller{
		cfg:         cfg,
		source:      source,
		credentials: credentials,
		session:     session,
		closer:      func() error { return nil },
	}

	switch cfg.ProgressBackend {
	case config.BackendDuckDB:
		repo, err := data.NewDuckDBRepository(cfg.DuckDBPath())
		if err != nil {
			return nil, err
		}
		c.progress = repo
		c.closer = repo.Close
	default:
		c.progress = data.NewProgressFile(cfg.ProgressPath())
	}

	c.downloader = NewDownloader(source, c.progress, session, DownloaderOptions{
		OutputDir:    cfg.OutputDir,
		ChapterDelay: cfg.ChapterDelayDuration(),
	})
	return c, nil
}

func (c *Controller) Config() config.Config             { return c.cfg }
func (c *Controller) Session() *Session                 { return c.session }
func (c *Controller) Progress() ProgressStore           { return c.progress }
func (c *Controller) Credentials() *data.CredentialFile { return c.credentials }
func (c *Controller) Downloader() *Downloader           { return c.downloader }

// Accounts lists the configured accounts.
func (c *Controller) Accounts() ([]data.Account, error) {
	return c.session.Accounts()
}

// Work resolves a catalog for display before a download is confirmed.
func (c *Controller) Work(ctx context.Context, workID string, accountID int) (*data.Work, error) {
	cookie, _, err := c.session.Cookie(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return c.source.GetWork(ctx, workID, cookie)
}

func (c *Controller) Download(ctx context.Context, req DownloadRequest) (*Result, error) {
	return c.downloader.Download(ctx, req)
}

// Setup creates the working directories, an accounts template and an empty
// progress store. Existing files are left alone.
func (c *Controller) Setup() ([]string, error) {
	var created []string
	for _, dir := range []string{c.cfg.ConfigDir, c.cfg.DataDir, c.cfg.LogsDir, c.cfg.OutputDir} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return created, data.NewError(data.KindStorage, "create "+dir, errors.WithStack(err))
		}
		created = append(created, dir)
	}

	accounts := c.cfg.AccountsPath()
	if _, err := os.Stat(accounts); os.IsNotExist(err) {
		if err := os.WriteFile(accounts, []byte(data.AccountsTemplate), 0600); err != nil {
			return created, data.NewError(data.KindStorage, "write accounts template", errors.WithStack(err))
		}
		created = append(created, accounts)
	}

	if f, ok := c.progress.(*data.ProgressFile); ok {
		if _, err := os.Stat(c.cfg.ProgressPath()); os.IsNotExist(err) {
			if err := f.Init(); err != nil {
				return created, err
			}
			created = append(created, c.cfg.ProgressPath())
		}
	}
	slog.Info("setup complete", "created", created)
	return created, nil
}

func (c *Controller) Close() error {
	return c.closer()
}
