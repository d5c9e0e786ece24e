package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kerbaras/novels/pkg/app/components"
	"github.com/kerbaras/novels/pkg/app/styles"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/integrations"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/pkg/errors"
)

// Backend is the part of services.Controller the interactive flows use.
type Backend interface {
	Accounts() ([]data.Account, error)
	Work(ctx context.Context, workID string, accountID int) (*data.Work, error)
	Download(ctx context.Context, req services.DownloadRequest) (*services.Result, error)
	Progress() services.ProgressStore
}

// App holds the question-driven flows used when a command runs without its
// flags.
type App struct {
	backend   Backend
	prompt    Prompter
	out       io.Writer
	outputDir string
}

func NewApp(backend Backend, prompt Prompter, out io.Writer, outputDir string) *App {
	return &App{backend: backend, prompt: prompt, out: out, outputDir: outputDir}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run shows the main menu until the user quits.
func (a *App) Run(ctx context.Context) error {
	for {
		choice, err := a.prompt.Select("What do you want to do?", []string{
			"Download a work",
			"Manage saved progress",
			"Renumber chapters",
			"Quit",
		})
		if err != nil {
			return err
		}

		switch choice {
		case 0:
			var id int
			if id, err = a.SelectAccount(""); err == nil {
				err = a.Download(ctx, id)
			}
		case 1:
			err = a.ManageProgress(ctx, 0)
		case 2:
			err = a.Modify()
		default:
			return nil
		}

		if errors.Is(err, ErrCancelled) {
			return err
		}
		if err != nil {
			a.printf("❌ %v\n", err)
		}
	}
}

// SelectAccount asks which account to use. With allLabel set, an extra first
// option stands for every account and selecting it returns 0. A single
// account is picked without asking.
func (a *App) SelectAccount(allLabel string) (int, error) {
	accounts, err := a.backend.Accounts()
	if err != nil {
		return 0, err
	}
	if len(accounts) == 1 && allLabel == "" {
		return accounts[0].ID, nil
	}

	var options []string
	if allLabel != "" {
		options = append(options, allLabel)
	}
	for _, acc := range accounts {
		options = append(options, fmt.Sprintf("#%d %s", acc.ID, acc.Email))
	}

	i, err := a.prompt.Select("Choose an account", options)
	if err != nil {
		return 0, err
	}
	if allLabel != "" {
		if i == 0 {
			return 0, nil
		}
		i--
	}
	return accounts[i].ID, nil
}

// Download keeps asking for work ids until the user types q.
func (a *App) Download(ctx context.Context, accountID int) error {
	for {
		id, err := a.prompt.Ask("Work ID (q to quit)", "")
		if err != nil {
			return err
		}
		id = strings.TrimSpace(id)
		switch {
		case id == "":
			continue
		case strings.EqualFold(id, "q"):
			return nil
		}

		if err := a.downloadOne(ctx, id, accountID); err != nil {
			if errors.Is(err, ErrCancelled) {
				return err
			}
			a.printf("❌ %v\n", err)
		}
	}
}

func (a *App) downloadOne(ctx context.Context, workID string, accountID int) error {
	a.printf("🔍 Resolving %s...\n", workID)
	work, err := a.backend.Work(ctx, workID, accountID)
	if err != nil {
		return err
	}
	total := work.TotalChapters()
	a.printf("%s\n", WorkInfo(work))

	start := 0
	saved, err := a.backend.Progress().Get(workID)
	if err != nil {
		return err
	}
	if saved != nil && saved.NextChapter > total {
		a.printf("📚 Already downloaded up to chapter %d\n", total)
	}
	if saved != nil && saved.NextChapter > 1 && saved.NextChapter <= total {
		resume, err := a.prompt.Confirm(fmt.Sprintf("Resume from chapter %d?", saved.NextChapter))
		if err != nil {
			return err
		}
		if resume {
			start = saved.NextChapter
		}
	}
	if start == 0 {
		if start, err = a.askNumber("Start chapter", 1, 1, total); err != nil {
			return err
		}
	}

	end := total
	toLast, err := a.prompt.Confirm("Download up to the last chapter?")
	if err != nil {
		return err
	}
	if !toLast {
		if end, err = a.askNumber("End chapter", total, start, total); err != nil {
			return err
		}
	}

	r, err := services.NewRange(start, end, 0)
	if err != nil {
		return err
	}
	ok, err := a.prompt.Confirm(fmt.Sprintf("Download chapters %d-%d of %s?", r.Start, r.End, work.Title))
	if err != nil {
		return err
	}
	if !ok {
		a.printf("⏭️  Skipped %s\n", work.Title)
		return nil
	}

	res, err := a.backend.Download(ctx, services.DownloadRequest{WorkID: workID, Range: r, AccountID: accountID})
	if err != nil {
		return err
	}
	PrintResult(a.out, res)
	return nil
}

// askNumber re-asks until the answer is an integer in [min, max].
func (a *App) askNumber(question string, def, min, max int) (int, error) {
	for {
		answer, err := a.prompt.Ask(fmt.Sprintf("%s (%d-%d)", question, min, max), strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err == nil && n >= min && n <= max {
			return n, nil
		}
		a.printf("⚠️  Enter a number between %d and %d\n", min, max)
	}
}

func (a *App) askInt(question string, def int) (int, error) {
	for {
		answer, err := a.prompt.Ask(question, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil {
			return n, nil
		}
		a.printf("⚠️  Enter a whole number\n")
	}
}

// Resume continues a work from its saved cursor.
func (a *App) Resume(ctx context.Context, workID string, accountID int) (*services.Result, error) {
	saved, err := a.backend.Progress().Get(workID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, data.NewError(data.KindNotFound, "no saved progress for "+workID, nil)
	}
	return a.backend.Download(ctx, services.DownloadRequest{
		WorkID:    workID,
		Range:     services.Range{Start: saved.NextChapter},
		AccountID: accountID,
	})
}

// ManageProgress shows the saved progress and lets the user resume or clear
// records.
func (a *App) ManageProgress(ctx context.Context, accountID int) error {
	store := a.backend.Progress()
	for {
		records, err := store.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			a.printf("📭 No saved progress\n")
			return nil
		}
		a.printf("%s\n", components.ProgressTable(records))

		choice, err := a.prompt.Select("What do you want to do?", []string{
			"Resume a download",
			"Clear one record",
			"Clear all records",
			"Back",
		})
		if err != nil {
			return err
		}

		switch choice {
		case 0:
			p, err := a.pickRecord("Resume which work?", records)
			if err != nil {
				return err
			}
			res, err := a.Resume(ctx, p.WorkID, accountID)
			if err != nil {
				return err
			}
			PrintResult(a.out, res)
			return nil
		case 1:
			p, err := a.pickRecord("Clear which work?", records)
			if err != nil {
				return err
			}
			if _, err := store.Delete(p.WorkID); err != nil {
				return err
			}
			a.printf("🗑️  Cleared progress of %s\n", p.Title)
		case 2:
			ok, err := a.prompt.Confirm("Clear all saved progress?")
			if err != nil {
				return err
			}
			if ok {
				if err := store.Clear(); err != nil {
					return err
				}
				a.printf("🗑️  Cleared all progress\n")
			}
		default:
			return nil
		}
	}
}

func (a *App) pickRecord(title string, records []*data.Progress) (*data.Progress, error) {
	options := make([]string, len(records))
	for i, p := range records {
		options[i] = fmt.Sprintf("%s %s (%s)", p.WorkID, p.Title, p.Progress)
	}
	i, err := a.prompt.Select(title, options)
	if err != nil {
		return nil, err
	}
	return records[i], nil
}

// TextFiles lists the .txt files of the output directory by name.
func TextFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, data.NewError(data.KindStorage, "list "+dir, errors.WithStack(err))
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Modify walks through renumbering the chapter headings of a downloaded file.
func (a *App) Modify() error {
	files, err := TextFiles(a.outputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return data.NewError(data.KindNotFound, "no text files in "+a.outputDir, nil)
	}

	i, err := a.prompt.Select("Which file?", files)
	if err != nil {
		return err
	}
	path := filepath.Join(a.outputDir, files[i])

	mode, err := a.prompt.Select("Renumber by", []string{"Chapter numbers", "Chapter names"})
	if err != nil {
		return err
	}

	var processor integrations.Processor
	var summary string
	if mode == 0 {
		start, err := a.askInt("First chapter number", 1)
		if err != nil {
			return err
		}
		end, err := a.askInt("Last chapter number", start)
		if err != nil {
			return err
		}
		inc, err := a.askInt("Increment", 1)
		if err != nil {
			return err
		}
		processor = integrations.RangeRenumber{Start: start, End: end, Increment: inc}
		summary = fmt.Sprintf("chapters %d-%d by %+d", start, end, inc)
	} else {
		r := integrations.NameRenumber{}
		if r.StartName, err = a.prompt.Ask("First chapter name", ""); err != nil {
			return err
		}
		if r.EndName, err = a.prompt.Ask("Last chapter name", r.StartName); err != nil {
			return err
		}
		if r.Increment, err = a.askInt("Increment", 1); err != nil {
			return err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return data.NewError(data.KindStorage, "read "+path, errors.WithStack(err))
		}
		plan, err := r.Plan(string(raw))
		if err != nil {
			return err
		}
		first, last := plan[0], plan[len(plan)-1]
		summary = fmt.Sprintf("%d headings from 第%d章 %s to 第%d章 %s by %+d",
			len(plan), first.Number, first.Name, last.Number, last.Name, r.Increment)
		processor = r
	}

	ok, err := a.prompt.Confirm(fmt.Sprintf("Renumber %s in %s?", summary, files[i]))
	if err != nil {
		return err
	}
	if !ok {
		a.printf("⏭️  Nothing changed\n")
		return nil
	}

	changed, err := integrations.ProcessFile(path, processor)
	if err != nil {
		return err
	}
	a.printf("✅ Renumbered %d headings in %s\n", changed, files[i])
	return nil
}

// WorkInfo renders the catalog summary shown before a download.
func WorkInfo(w *data.Work) string {
	lines := []string{
		styles.TitleStyle.Render("📖 " + w.Title),
		"Author:   " + w.Author,
		fmt.Sprintf("Chapters: %d in %d volumes", w.TotalChapters(), len(w.Volumes)),
	}
	if w.Categories != "" {
		lines = append(lines, "Genre:    "+w.Categories)
	}
	if w.Tags != "" {
		lines = append(lines, "Tags:     "+w.Tags)
	}
	if w.Description != "" {
		lines = append(lines, "", styles.MutedStyle.Render(components.Truncate(w.Description, 200)))
	}
	return styles.CardStyle.Render(strings.Join(lines, "\n"))
}

// PrintResult reports how a download run ended.
func PrintResult(out io.Writer, res *services.Result) {
	switch res.State {
	case services.StateDone:
		fmt.Fprintf(out, "✅ Saved %d chapters to %s\n", res.Written, res.Path)
	case services.StatePaused:
		if res.Written == 0 {
			fmt.Fprintln(out, "⏸️  Interrupted before any chapter was written")
			return
		}
		fmt.Fprintf(out, "⏸️  Paused after %d chapters, run again to resume from chapter %d\n",
			res.Written, res.NextChapter)
	}
}
