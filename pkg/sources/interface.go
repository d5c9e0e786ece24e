package sources

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/novels/pkg/data"
)

// Source resolves works and chapter bodies from the portal. cookie is sent
// verbatim with each request.
type Source interface {
	GetWork(ctx context.Context, workID, cookie string) (*data.Work, error)
	// GetChapter returns the chapter body. A page without a body yields a
	// placeholder and no error; only fetch failures are returned.
	GetChapter(ctx context.Context, chapter data.Chapter, cookie string) (string, error)
}

// Parser extracts documents from fetched pages. Implementations are pure.
type Parser interface {
	ParseCatalog(doc *goquery.Document, workID string) (*data.Work, error)
	ParseChapter(doc *goquery.Document) (string, bool)
}
