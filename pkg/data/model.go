package data

import (
	"fmt"
	"math"
	"time"
)

// Account is one entry of the user-editable accounts list.
type Account struct {
	ID       int
	Email    string
	Password string
}

// Credential is the session artifact obtained for an account after a
// successful login. Cookie is sent verbatim on every request.
type Credential struct {
	UserID      int     `json:"user_id"`
	UserEmail   string  `json:"user_email"`
	Token       string  `json:"token"`
	Cookie      string  `json:"Cookie"`
	Timestamp   float64 `json:"timestamp"`
	Expires     *int64  `json:"expires"`
	ExpiresDate *string `json:"expires_date"`
}

// SetExpiry fills both expiry fields from a unix timestamp.
func (c *Credential) SetExpiry(unix int64) {
	date := time.Unix(unix, 0).Format("2006-01-02 15:04:05")
	c.Expires = &unix
	c.ExpiresDate = &date
}

// ValidAt reports whether the credential can be used at the given time.
func (c *Credential) ValidAt(now time.Time) bool {
	if c == nil || c.Cookie == "" {
		return false
	}
	if c.Expires != nil && *c.Expires != 0 {
		return time.Unix(*c.Expires, 0).After(now)
	}
	return true
}

type Work struct {
	ID          string
	Title       string
	Author      string
	Categories  string
	Tags        string
	Description string
	Volumes     []Volume
}

// TotalChapters is the length of the flattened chapter sequence.
func (w *Work) TotalChapters() int {
	total := 0
	for _, v := range w.Volumes {
		total += len(v.Chapters)
	}
	return total
}

// Volume groups consecutive chapters. An empty title means the work has no
// volume structure.
type Volume struct {
	Title    string
	Chapters []Chapter
}

type Chapter struct {
	URL   string
	Title string
}

// Progress is the persisted cursor for one work. NextChapter is one past the
// last chapter appended to the output file.
type Progress struct {
	WorkID        string  `json:"-"`
	Title         string  `json:"title"`
	NextChapter   int     `json:"next_chapter"`
	TotalChapters int     `json:"total_chapters"`
	Progress      string  `json:"progress"`
	Percentage    float64 `json:"percentage"`
}

// NewProgress builds a record with its display fields derived.
func NewProgress(workID, title string, next, total int) *Progress {
	done := next - 1
	percentage := 0.0
	if total > 0 {
		percentage = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return &Progress{
		WorkID:        workID,
		Title:         title,
		NextChapter:   next,
		TotalChapters: total,
		Progress:      fmt.Sprintf("%d/%d", done, total),
		Percentage:    percentage,
	}
}
