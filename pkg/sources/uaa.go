package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/pkg/errors"
)

// Fetcher is the request layer the source goes through.
type Fetcher interface {
	Get(ctx context.Context, url, cookie string) ([]byte, error)
}

type UAA struct {
	api     Fetcher
	parser  Parser
	baseURL string
}

func NewUAA(api Fetcher, baseURL string) *UAA {
	return &UAA{api: api, parser: HTMLParser{BaseURL: baseURL}, baseURL: baseURL}
}

// WithParser replaces the page parser.
func (u *UAA) WithParser(p Parser) *UAA {
	u.parser = p
	return u
}

func (u *UAA) GetWork(ctx context.Context, workID, cookie string) (*data.Work, error) {
	url := fmt.Sprintf("%s/novel/intro?id=%s", u.baseURL, workID)
	slog.InfoContext(ctx, "resolving catalog", "work_id", workID, "url", url)

	doc, err := u.document(ctx, url, cookie)
	if err != nil {
		return nil, err
	}
	work, err := u.parser.ParseCatalog(doc, workID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "catalog resolved", "work_id", workID, "title", work.Title,
		"volumes", len(work.Volumes), "chapters", work.TotalChapters())
	return work, nil
}

func (u *UAA) GetChapter(ctx context.Context, chapter data.Chapter, cookie string) (string, error) {
	doc, err := u.document(ctx, chapter.URL, cookie)
	if err != nil {
		return "", err
	}
	body, ok := u.parser.ParseChapter(doc)
	if !ok {
		slog.WarnContext(ctx, "chapter body not found", "title", chapter.Title, "url", chapter.URL)
		return NotFoundPlaceholder(chapter.Title), nil
	}
	return body, nil
}

func (u *UAA) document(ctx context.Context, url, cookie string) (*goquery.Document, error) {
	body, err := u.api.Get(ctx, url, cookie)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, data.NewError(data.KindParse, "read "+url, errors.WithStack(err))
	}
	return doc, nil
}

func NotFoundPlaceholder(title string) string {
	return fmt.Sprintf("[章节内容未找到: %s]", title)
}

func FailedPlaceholder(err error) string {
	return fmt.Sprintf("[下载失败: %v]", err)
}
