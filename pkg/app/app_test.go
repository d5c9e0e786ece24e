package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter answers questions from a fixed script and records what was
// asked.
type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) next(question string) (string, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", ErrCancelled
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) Ask(question, def string) (string, error) {
	answer, err := p.next(question)
	if answer == "" && err == nil {
		return def, nil
	}
	return answer, err
}

func (p *scriptedPrompter) Confirm(question string) (bool, error) {
	answer, err := p.next(question)
	return answer == "y", err
}

func (p *scriptedPrompter) Select(title string, options []string) (int, error) {
	answer, err := p.next(title)
	if err != nil {
		return 0, err
	}
	var i int
	_, err = fmt.Sscanf(answer, "%d", &i)
	return i, err
}

type memoryProgress struct {
	records map[string]*data.Progress
}

func newMemoryProgress() *memoryProgress {
	return &memoryProgress{records: map[string]*data.Progress{}}
}

func (m *memoryProgress) Get(workID string) (*data.Progress, error) { return m.records[workID], nil }

func (m *memoryProgress) Upsert(workID, title string, next, total int) error {
	m.records[workID] = data.NewProgress(workID, title, next, total)
	return nil
}

func (m *memoryProgress) Delete(workID string) (bool, error) {
	_, ok := m.records[workID]
	delete(m.records, workID)
	return ok, nil
}

func (m *memoryProgress) Clear() error {
	m.records = map[string]*data.Progress{}
	return nil
}

func (m *memoryProgress) List() ([]*data.Progress, error) {
	var out []*data.Progress
	for _, p := range m.records {
		out = append(out, p)
	}
	return out, nil
}

type fakeBackend struct {
	accounts []data.Account
	works    map[string]*data.Work
	progress *memoryProgress
	requests []services.DownloadRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts: []data.Account{{ID: 1, Email: "a@x.y"}, {ID: 2, Email: "b@x.y"}},
		works: map[string]*data.Work{
			"7": {ID: "7", Title: "Novel", Author: "Someone", Volumes: []data.Volume{
				{Title: "Vol 1", Chapters: []data.Chapter{{Title: "C1"}, {Title: "C2"}, {Title: "C3"}}},
				{Title: "Vol 2", Chapters: []data.Chapter{{Title: "C4"}, {Title: "C5"}}},
			}},
		},
		progress: newMemoryProgress(),
	}
}

func (b *fakeBackend) Accounts() ([]data.Account, error) { return b.accounts, nil }

func (b *fakeBackend) Work(ctx context.Context, workID string, accountID int) (*data.Work, error) {
	w, ok := b.works[workID]
	if !ok {
		return nil, data.NewError(data.KindNotFound, "work "+workID, nil)
	}
	return w, nil
}

func (b *fakeBackend) Download(ctx context.Context, req services.DownloadRequest) (*services.Result, error) {
	b.requests = append(b.requests, req)
	w := b.works[req.WorkID]
	r, err := req.Range.Clamp(w.TotalChapters())
	if err != nil {
		return nil, err
	}
	return &services.Result{State: services.StateDone, Work: w, Range: r, Written: r.Len(),
		NextChapter: r.End + 1, Path: "output/Novel.txt"}, nil
}

func (b *fakeBackend) Progress() services.ProgressStore { return b.progress }

func TestSelectAccount(t *testing.T) {
	t.Run("single account without asking", func(t *testing.T) {
		backend := newFakeBackend()
		backend.accounts = backend.accounts[:1]
		prompt := &scriptedPrompter{}

		id, err := NewApp(backend, prompt, &bytes.Buffer{}, "").SelectAccount("")
		require.NoError(t, err)
		assert.Equal(t, 1, id)
		assert.Empty(t, prompt.asked)
	})

	t.Run("choice among accounts", func(t *testing.T) {
		prompt := &scriptedPrompter{answers: []string{"1"}}
		id, err := NewApp(newFakeBackend(), prompt, &bytes.Buffer{}, "").SelectAccount("")
		require.NoError(t, err)
		assert.Equal(t, 2, id)
	})

	t.Run("all option", func(t *testing.T) {
		app := NewApp(newFakeBackend(), &scriptedPrompter{answers: []string{"0"}}, &bytes.Buffer{}, "")
		id, err := app.SelectAccount("All accounts")
		require.NoError(t, err)
		assert.Equal(t, 0, id)

		app = NewApp(newFakeBackend(), &scriptedPrompter{answers: []string{"1"}}, &bytes.Buffer{}, "")
		id, err = app.SelectAccount("All accounts")
		require.NoError(t, err)
		assert.Equal(t, 1, id)
	})
}

func TestDownloadFlow(t *testing.T) {
	t.Run("whole work", func(t *testing.T) {
		backend := newFakeBackend()
		out := &bytes.Buffer{}
		// work id, start (default), to last, confirm, quit
		prompt := &scriptedPrompter{answers: []string{"7", "", "y", "y", "q"}}

		require.NoError(t, NewApp(backend, prompt, out, "").Download(context.Background(), 1))

		require.Len(t, backend.requests, 1)
		assert.Equal(t, services.DownloadRequest{WorkID: "7", Range: services.Range{Start: 1, End: 5}, AccountID: 1},
			backend.requests[0])
		assert.Contains(t, out.String(), "Novel")
		assert.Contains(t, out.String(), "Saved 5 chapters")
	})

	t.Run("resume offered from saved progress", func(t *testing.T) {
		backend := newFakeBackend()
		require.NoError(t, backend.progress.Upsert("7", "Novel", 4, 5))
		prompt := &scriptedPrompter{answers: []string{"7", "y", "y", "y", "q"}}

		require.NoError(t, NewApp(backend, prompt, &bytes.Buffer{}, "").Download(context.Background(), 0))

		require.Len(t, backend.requests, 1)
		assert.Equal(t, services.Range{Start: 4, End: 5}, backend.requests[0].Range)
		assert.Contains(t, prompt.asked, "Resume from chapter 4?")
	})

	t.Run("custom range re-asks invalid numbers", func(t *testing.T) {
		backend := newFakeBackend()
		out := &bytes.Buffer{}
		prompt := &scriptedPrompter{answers: []string{"7", "9", "2", "n", "1", "3", "y", "q"}}

		require.NoError(t, NewApp(backend, prompt, out, "").Download(context.Background(), 0))

		require.Len(t, backend.requests, 1)
		assert.Equal(t, services.Range{Start: 2, End: 3}, backend.requests[0].Range)
		assert.Equal(t, 2, strings.Count(out.String(), "Enter a number between"))
	})

	t.Run("declined confirmation downloads nothing", func(t *testing.T) {
		backend := newFakeBackend()
		prompt := &scriptedPrompter{answers: []string{"7", "", "y", "n", "q"}}

		require.NoError(t, NewApp(backend, prompt, &bytes.Buffer{}, "").Download(context.Background(), 0))
		assert.Empty(t, backend.requests)
	})

	t.Run("unknown work keeps asking", func(t *testing.T) {
		backend := newFakeBackend()
		out := &bytes.Buffer{}
		prompt := &scriptedPrompter{answers: []string{"404", "q"}}

		require.NoError(t, NewApp(backend, prompt, out, "").Download(context.Background(), 0))
		assert.Contains(t, out.String(), "❌")
	})

	t.Run("cancel stops the loop", func(t *testing.T) {
		prompt := &scriptedPrompter{answers: []string{"7"}}
		err := NewApp(newFakeBackend(), prompt, &bytes.Buffer{}, "").Download(context.Background(), 0)
		assert.ErrorIs(t, err, ErrCancelled)
	})
}

func TestResume(t *testing.T) {
	backend := newFakeBackend()
	app := NewApp(backend, &scriptedPrompter{}, &bytes.Buffer{}, "")

	_, err := app.Resume(context.Background(), "7", 0)
	assert.True(t, data.IsKind(err, data.KindNotFound))

	require.NoError(t, backend.progress.Upsert("7", "Novel", 3, 5))
	res, err := app.Resume(context.Background(), "7", 2)
	require.NoError(t, err)
	assert.Equal(t, services.Range{Start: 3, End: 5}, res.Range)
	assert.Equal(t, 2, backend.requests[0].AccountID)
}

func TestManageProgress(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		out := &bytes.Buffer{}
		require.NoError(t, NewApp(newFakeBackend(), &scriptedPrompter{}, out, "").ManageProgress(context.Background(), 0))
		assert.Contains(t, out.String(), "No saved progress")
	})

	t.Run("clear one", func(t *testing.T) {
		backend := newFakeBackend()
		require.NoError(t, backend.progress.Upsert("7", "Novel", 3, 5))
		prompt := &scriptedPrompter{answers: []string{"1", "0"}}

		require.NoError(t, NewApp(backend, prompt, &bytes.Buffer{}, "").ManageProgress(context.Background(), 0))
		assert.Empty(t, backend.progress.records)
	})

	t.Run("clear all", func(t *testing.T) {
		backend := newFakeBackend()
		require.NoError(t, backend.progress.Upsert("7", "Novel", 3, 5))
		require.NoError(t, backend.progress.Upsert("8", "Other", 2, 9))
		prompt := &scriptedPrompter{answers: []string{"2", "y"}}

		require.NoError(t, NewApp(backend, prompt, &bytes.Buffer{}, "").ManageProgress(context.Background(), 0))
		assert.Empty(t, backend.progress.records)
	})

	t.Run("resume", func(t *testing.T) {
		backend := newFakeBackend()
		require.NoError(t, backend.progress.Upsert("7", "Novel", 3, 5))
		prompt := &scriptedPrompter{answers: []string{"0", "0"}}

		require.NoError(t, NewApp(backend, prompt, &bytes.Buffer{}, "").ManageProgress(context.Background(), 1))
		require.Len(t, backend.requests, 1)
		assert.Equal(t, 3, backend.requests[0].Range.Start)
	})
}

const sampleText = "Novel\n\n\n第1章 开始\n\n正文\n\n第2章 中间\n\n正文\n\n第3章 结束\n\n正文\n"

func TestModify(t *testing.T) {
	setup := func(t *testing.T) (string, string) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Novel.txt")
		require.NoError(t, os.WriteFile(path, []byte(sampleText), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644))
		return dir, path
	}

	t.Run("by number", func(t *testing.T) {
		dir, path := setup(t)
		out := &bytes.Buffer{}
		// file, mode, start, end, increment, confirm
		prompt := &scriptedPrompter{answers: []string{"0", "0", "2", "3", "10", "y"}}

		require.NoError(t, NewApp(newFakeBackend(), prompt, out, dir).Modify())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "第1章 开始")
		assert.Contains(t, string(raw), "第12章 中间")
		assert.Contains(t, string(raw), "第13章 结束")
		assert.Contains(t, out.String(), "Renumbered 2 headings")
	})

	t.Run("by name with preview", func(t *testing.T) {
		dir, path := setup(t)
		prompt := &scriptedPrompter{answers: []string{"0", "1", "中间", "结束", "-1", "y"}}

		require.NoError(t, NewApp(newFakeBackend(), prompt, &bytes.Buffer{}, dir).Modify())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "第1章 中间")
		assert.Contains(t, string(raw), "第2章 结束")
		last := prompt.asked[len(prompt.asked)-1]
		assert.Contains(t, last, "2 headings from 第2章 中间 to 第3章 结束")
	})

	t.Run("declined leaves file alone", func(t *testing.T) {
		dir, path := setup(t)
		prompt := &scriptedPrompter{answers: []string{"0", "0", "1", "3", "1", "n"}}

		require.NoError(t, NewApp(newFakeBackend(), prompt, &bytes.Buffer{}, dir).Modify())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, sampleText, string(raw))
	})

	t.Run("no files", func(t *testing.T) {
		err := NewApp(newFakeBackend(), &scriptedPrompter{}, &bytes.Buffer{}, t.TempDir()).Modify()
		assert.True(t, data.IsKind(err, data.KindNotFound))
	})
}

func TestTextFiles(t *testing.T) {
	files, err := TextFiles(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPrintResult(t *testing.T) {
	out := &bytes.Buffer{}
	PrintResult(out, &services.Result{State: services.StatePaused, Written: 2, NextChapter: 5})
	assert.Contains(t, out.String(), "resume from chapter 5")

	out.Reset()
	PrintResult(out, &services.Result{State: services.StatePaused})
	assert.Contains(t, out.String(), "before any chapter")
}

func TestInputModel(t *testing.T) {
	m := newInputModel("Work ID", "1")
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("42")})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	final := model.(inputModel)
	assert.True(t, final.done)
	assert.Equal(t, "42", final.answer())
	assert.NotNil(t, cmd)

	model, _ = newInputModel("Start", "1").Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "1", model.(inputModel).answer())

	model, _ = newInputModel("Start", "1").Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, model.(inputModel).cancelled)
}

func TestSelectModel(t *testing.T) {
	var model tea.Model = newSelectModel("Pick", []string{"a", "b", "c"})
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyDown},
		{Type: tea.KeyDown},
		{Type: tea.KeyDown},
		{Type: tea.KeyUp},
	} {
		model, _ = model.Update(key)
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	final := model.(selectModel)
	assert.True(t, final.done)
	assert.Equal(t, 1, final.cursor)
	assert.Contains(t, final.View(), "b")
}

func TestParseYesNo(t *testing.T) {
	for answer, want := range map[string]bool{"y": true, "YES": true, "n": false, " no ": false} {
		ok, valid := parseYesNo(answer)
		assert.True(t, valid, answer)
		assert.Equal(t, want, ok, answer)
	}
	_, valid := parseYesNo("maybe")
	assert.False(t, valid)
}

func TestRun(t *testing.T) {
	backend := newFakeBackend()
	out := &bytes.Buffer{}
	// download with account #2: work id, start, to last, confirm, quit loop;
	// then renumber with no files, then quit
	prompt := &scriptedPrompter{answers: []string{"0", "1", "7", "", "y", "y", "q", "2", "3"}}

	require.NoError(t, NewApp(backend, prompt, out, t.TempDir()).Run(context.Background()))

	require.Len(t, backend.requests, 1)
	assert.Equal(t, 2, backend.requests[0].AccountID)
	assert.Contains(t, out.String(), "no text files")
}
