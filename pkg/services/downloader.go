package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/sources"
	"github.com/kerbaras/novels/pkg/utils"
	"github.com/pkg/errors"
)

type State string

const (
	StateResolving State = "resolving"
	StateWriting   State = "writing"
	StatePaused    State = "paused"
	StateDone      State = "done"
)

// DownloadProgress is reported after each state change and after every
// chapter written.
type DownloadProgress struct {
	WorkID       string
	Title        string
	State        State
	Chapter      int
	ChapterTitle string
	Start        int
	End          int
	// Failed is set when the chapter was written with a placeholder body.
	Failed bool
	Error  error
}

// ProgressStore persists the per-work cursor. Implemented by
// data.ProgressFile and data.Repository.
type ProgressStore interface {
	Get(workID string) (*data.Progress, error)
	Upsert(workID, title string, next, total int) error
	Delete(workID string) (bool, error)
	Clear() error
	List() ([]*data.Progress, error)
}

// Credentials resolves the cookie a run uses and renews it once the portal
// rejects it. Implemented by Session.
type Credentials interface {
	Cookie(ctx context.Context, accountID int) (string, int, error)
	Renew(ctx context.Context, accountID int) (string, error)
}

type DownloadRequest struct {
	WorkID string
	Range  Range
	// AccountID 0 lets the credential layer pick an account.
	AccountID int
}

type Result struct {
	State State
	Work  *data.Work
	Path  string
	Range Range
	// Written counts the chapters appended in this run.
	Written     int
	NextChapter int
}

type DownloaderOptions struct {
	OutputDir    string
	ChapterDelay time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

// Downloader runs one work at a time: resolve the catalog, then append each
// chapter of the range to the output file and advance the progress cursor.
type Downloader struct {
	source       sources.Source
	progress     ProgressStore
	credentials  Credentials
	outputDir    string
	chapterDelay time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	onProgress   func(DownloadProgress)
}

func NewDownloader(source sources.Source, progress ProgressStore, credentials Credentials, opts DownloaderOptions) *Downloader {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = utils.Sleep
	}
	return &Downloader{
		source:       source,
		progress:     progress,
		credentials:  credentials,
		outputDir:    opts.OutputDir,
		chapterDelay: opts.ChapterDelay,
		sleep:        sleep,
	}
}

// OnProgress registers the progress callback. Calls happen on the
// downloading goroutine.
func (d *Downloader) OnProgress(fn func(DownloadProgress)) {
	d.onProgress = fn
}

func (d *Downloader) sendProgress(p DownloadProgress) {
	if d.onProgress != nil {
		d.onProgress(p)
	}
}

// session holds the cookie of a run and renews it at most once.
type session struct {
	credentials Credentials
	accountID   int
	cookie      string
	renewed     bool
}

// retry reports whether err is a rejected session that was renewed and the
// request should be repeated.
func (s *session) retry(ctx context.Context, err error) (bool, error) {
	if !utils.IsInvalidSession(err) || s.renewed {
		return false, nil
	}
	s.renewed = true
	slog.WarnContext(ctx, "session rejected, renewing credential", "user_id", s.accountID, "status", data.StatusOf(err))
	cookie, renewErr := s.credentials.Renew(ctx, s.accountID)
	if renewErr != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if !data.IsKind(renewErr, data.KindAuth) {
			renewErr = data.NewError(data.KindAuth, "renew session", renewErr)
		}
		return false, renewErr
	}
	s.cookie = cookie
	return true, nil
}

// Download fetches req.Range of the work. An interrupted run returns
// StatePaused with a nil error after saving the cursor; chapters already
// appended stay in the file.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest) (*Result, error) {
	result := &Result{State: StateResolving, Range: req.Range}

	cookie, accountID, err := d.credentials.Cookie(ctx, req.AccountID)
	if err != nil {
		if ctx.Err() != nil {
			result.State = StatePaused
			return result, nil
		}
		return nil, err
	}
	sess := &session{credentials: d.credentials, accountID: accountID, cookie: cookie}

	d.sendProgress(DownloadProgress{WorkID: req.WorkID, State: StateResolving})
	work, err := d.resolve(ctx, sess, req.WorkID)
	if err != nil {
		if ctx.Err() != nil {
			result.State = StatePaused
			return result, nil
		}
		return nil, err
	}
	result.Work = work

	total := work.TotalChapters()
	r, err := req.Range.Clamp(total)
	if err != nil {
		return nil, err
	}
	result.Range = r
	result.NextChapter = r.Start

	path, f, err := d.open(work, r.Start)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	result.Path = path

	slog.InfoContext(ctx, "download started", "work_id", work.ID, "title", work.Title,
		"start", r.Start, "end", r.End, "total", total, "path", path)

	if r.Start == 1 {
		if err := write(f, Header(work)); err != nil {
			return nil, err
		}
	}

	pause := func() (*Result, error) {
		result.State = StatePaused
		if result.Written > 0 {
			if err := d.progress.Upsert(work.ID, work.Title, result.NextChapter, total); err != nil {
				return result, err
			}
		}
		slog.InfoContext(ctx, "download paused", "work_id", work.ID, "next_chapter", result.NextChapter, "written", result.Written)
		d.sendProgress(DownloadProgress{WorkID: work.ID, Title: work.Title, State: StatePaused,
			Chapter: result.NextChapter, Start: r.Start, End: r.End})
		return result, nil
	}

	number := 0
	for _, volume := range work.Volumes {
		for i, chapter := range volume.Chapters {
			number++
			if number < r.Start {
				continue
			}
			if number > r.End {
				break
			}
			if ctx.Err() != nil {
				return pause()
			}

			body, failed, err := d.fetch(ctx, sess, chapter)
			if ctx.Err() != nil {
				return pause()
			}
			if err != nil {
				return result, err
			}

			if i == 0 && volume.Title != "" {
				if err := write(f, Banner(volume.Title)); err != nil {
					return result, err
				}
			}
			if err := write(f, Block(chapter.Title, body)); err != nil {
				return result, err
			}
			if err := f.Sync(); err != nil {
				return result, data.NewError(data.KindStorage, "sync output", err)
			}

			result.Written++
			result.NextChapter = number + 1
			if err := d.progress.Upsert(work.ID, work.Title, number+1, total); err != nil {
				return result, err
			}
			d.sendProgress(DownloadProgress{WorkID: work.ID, Title: work.Title, State: StateWriting,
				Chapter: number, ChapterTitle: chapter.Title, Start: r.Start, End: r.End, Failed: failed})

			if number < r.End {
				if err := d.sleep(ctx, d.chapterDelay); err != nil {
					return pause()
				}
			}
		}
		if number >= r.End {
			break
		}
	}

	result.State = StateDone
	slog.InfoContext(ctx, "download finished", "work_id", work.ID, "written", result.Written, "path", path)
	d.sendProgress(DownloadProgress{WorkID: work.ID, Title: work.Title, State: StateDone,
		Chapter: r.End, Start: r.Start, End: r.End})
	return result, nil
}

func (d *Downloader) resolve(ctx context.Context, sess *session, workID string) (*data.Work, error) {
	for {
		work, err := d.source.GetWork(ctx, workID, sess.cookie)
		if err == nil {
			return work, nil
		}
		retry, renewErr := sess.retry(ctx, err)
		if renewErr != nil {
			return nil, renewErr
		}
		if !retry {
			return nil, err
		}
	}
}

// fetch returns the chapter body or a placeholder. Only a failed renewal is
// returned as an error.
func (d *Downloader) fetch(ctx context.Context, sess *session, chapter data.Chapter) (string, bool, error) {
	for {
		body, err := d.source.GetChapter(ctx, chapter, sess.cookie)
		if err == nil {
			return body, false, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		retry, renewErr := sess.retry(ctx, err)
		if renewErr != nil {
			return "", false, renewErr
		}
		if !retry {
			slog.ErrorContext(ctx, "chapter download failed", "title", chapter.Title, "url", chapter.URL, "err", err)
			return sources.FailedPlaceholder(err), true, nil
		}
	}
}

func (d *Downloader) open(work *data.Work, start int) (string, *os.File, error) {
	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return "", nil, data.NewError(data.KindStorage, "create output dir", errors.WithStack(err))
	}
	path := OutputPath(d.outputDir, work.Title)

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if start == 1 {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return "", nil, data.NewError(data.KindStorage, "open output", errors.WithStack(err))
	}
	return path, f, nil
}

func write(f *os.File, s string) error {
	if _, err := f.WriteString(s); err != nil {
		return data.NewError(data.KindStorage, "write output", errors.WithStack(err))
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*]`)

// SafeFilename replaces characters that are not allowed in file names.
func SafeFilename(title string) string {
	return unsafeFilename.ReplaceAllString(title, "_")
}

// OutputPath is where a work's text file lives.
func OutputPath(dir, title string) string {
	return filepath.Join(dir, SafeFilename(title)+".txt")
}

func Header(w *data.Work) string {
	return fmt.Sprintf("%s\n作者：%s\n题材：%s\n标签：%s\n\n%s\n\n\n",
		w.Title, w.Author, w.Categories, w.Tags, w.Description)
}

func Banner(volume string) string {
	return fmt.Sprintf("\n%s\n\n", volume)
}

func Block(title, body string) string {
	return fmt.Sprintf("\n%s\n\n%s\n\n", title, body)
}
