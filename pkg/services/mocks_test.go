package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kerbaras/novels/pkg/data"
)

type mockSource struct {
	mu             sync.Mutex
	chapterCalls   []string
	getWorkFunc    func(ctx context.Context, workID, cookie string) (*data.Work, error)
	getChapterFunc func(ctx context.Context, chapter data.Chapter, cookie string) (string, error)
}

func (m *mockSource) GetWork(ctx context.Context, workID, cookie string) (*data.Work, error) {
	if m.getWorkFunc != nil {
		return m.getWorkFunc(ctx, workID, cookie)
	}
	return nil, nil
}

func (m *mockSource) GetChapter(ctx context.Context, chapter data.Chapter, cookie string) (string, error) {
	m.mu.Lock()
	m.chapterCalls = append(m.chapterCalls, chapter.Title)
	m.mu.Unlock()
	if m.getChapterFunc != nil {
		return m.getChapterFunc(ctx, chapter, cookie)
	}
	return "body of " + chapter.Title, nil
}

type mockCredentials struct {
	cookieFunc func(ctx context.Context, accountID int) (string, int, error)
	renewFunc  func(ctx context.Context, accountID int) (string, error)
	renewals   int
}

func (m *mockCredentials) Cookie(ctx context.Context, accountID int) (string, int, error) {
	if m.cookieFunc != nil {
		return m.cookieFunc(ctx, accountID)
	}
	return "token=ok", 1, nil
}

func (m *mockCredentials) Renew(ctx context.Context, accountID int) (string, error) {
	m.renewals++
	if m.renewFunc != nil {
		return m.renewFunc(ctx, accountID)
	}
	return "token=renewed", nil
}

type mockProvider struct {
	calls     []int
	loginFunc func(ctx context.Context, account data.Account) (*data.Credential, error)
}

func (m *mockProvider) Login(ctx context.Context, account data.Account) (*data.Credential, error) {
	m.calls = append(m.calls, account.ID)
	if m.loginFunc != nil {
		return m.loginFunc(ctx, account)
	}
	return &data.Credential{
		UserID:    account.ID,
		UserEmail: account.Email,
		Token:     "tk",
		Cookie:    fmt.Sprintf("token=user%d", account.ID),
	}, nil
}

// testWork builds a work whose volumes have the given titles and chapter
// counts. Chapters are titled "C<n>" by global number.
func testWork(id string, volumes ...any) *data.Work {
	work := &data.Work{ID: id, Title: "Work " + id, Author: "Author", Categories: "Cat", Tags: "Tag", Description: "Desc"}
	n := 0
	for i := 0; i+1 < len(volumes); i += 2 {
		v := data.Volume{Title: volumes[i].(string)}
		for j := 0; j < volumes[i+1].(int); j++ {
			n++
			v.Chapters = append(v.Chapters, data.Chapter{
				URL:   fmt.Sprintf("https://portal.test/chapter?id=%d", n),
				Title: fmt.Sprintf("C%d", n),
			})
		}
		work.Volumes = append(work.Volumes, v)
	}
	return work
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
