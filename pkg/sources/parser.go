package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/novels/pkg/data"
	"golang.org/x/net/html"
)

const unknownAuthor = "未知作者"

// HTMLParser understands the portal's intro and chapter pages.
type HTMLParser struct {
	// BaseURL is prefixed to relative chapter links.
	BaseURL string
}

func (p HTMLParser) ParseCatalog(doc *goquery.Document, workID string) (*data.Work, error) {
	titleEl := doc.Find("div.info_box h1").First()
	if titleEl.Length() == 0 {
		return nil, data.NewError(data.KindNotFound, "parse catalog "+workID, nil)
	}

	work := &data.Work{
		ID:          workID,
		Title:       strings.TrimSpace(titleEl.Text()),
		Author:      unknownAuthor,
		Categories:  joinTexts(doc.Find(`div.info_box div.item a[href*="category"]`)),
		Tags:        joinTexts(doc.Find(`.tag_box a[href*="tag"]`)),
		Description: strings.TrimSpace(doc.Find(".brief_box .txt.ellipsis").First().Text()),
	}
	if author := doc.Find(`.info_box .item a[href*="author"]`).First(); author.Length() > 0 {
		work.Author = strings.TrimSpace(author.Text())
	}

	if volumes := doc.Find("div.catalog_box li.volume"); volumes.Length() > 0 {
		volumes.Each(func(_ int, s *goquery.Selection) {
			chapters := p.chapters(s.Find("ul.children a[href]"))
			if len(chapters) == 0 {
				return
			}
			work.Volumes = append(work.Volumes, data.Volume{
				Title:    strings.TrimSpace(s.Find("span").First().Text()),
				Chapters: chapters,
			})
		})
	} else if chapters := p.chapters(doc.Find("div.catalog_box a[href]")); len(chapters) > 0 {
		work.Volumes = []data.Volume{{Chapters: chapters}}
	}

	if work.TotalChapters() == 0 {
		return nil, data.NewError(data.KindParse, "parse catalog "+workID+": no chapters", nil)
	}
	return work, nil
}

func (p HTMLParser) chapters(links *goquery.Selection) []data.Chapter {
	var out []data.Chapter
	links.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := ownText(a)
		if title == "" {
			title = strings.TrimSpace(a.Text())
		}
		out = append(out, data.Chapter{URL: p.absolute(href), Title: title})
	})
	return out
}

func (p HTMLParser) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return p.BaseURL + href
}

// ParseChapter joins the own text of every non-empty line of the article.
// ok is false when the page has no article container.
func (p HTMLParser) ParseChapter(doc *goquery.Document) (string, bool) {
	article := doc.Find("div.article").First()
	if article.Length() == 0 {
		return "", false
	}
	var lines []string
	article.Find("div.line").Each(func(_ int, s *goquery.Selection) {
		if text := ownText(s); text != "" {
			lines = append(lines, text)
		}
	})
	return strings.Join(lines, "\n"), true
}

// ownText returns the first non-blank text node directly under s, trimmed.
// Text of nested elements is ignored.
func ownText(s *goquery.Selection) string {
	for _, node := range s.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.TextNode {
				continue
			}
			if text := strings.TrimSpace(c.Data); text != "" {
				return text
			}
		}
	}
	return ""
}

func joinTexts(s *goquery.Selection) string {
	var parts []string
	s.Each(func(_ int, el *goquery.Selection) {
		if text := strings.TrimSpace(el.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
