package integrations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kerbaras/novels/pkg/data"
)

var (
	chapterNumber  = regexp.MustCompile(`第(\d+)章`)
	chapterHeading = regexp.MustCompile(`第(\d+)章[ \t\x{3000}]+([^\n]+)`)
	nameNoise      = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// RangeRenumber shifts every chapter number N with Start <= N <= End by
// Increment, wherever "第N章" appears in the text.
type RangeRenumber struct {
	Start     int
	End       int
	Increment int
}

func (r RangeRenumber) Process(text string) (string, int, error) {
	if r.Start > r.End {
		return "", 0, data.NewError(data.KindConfig,
			fmt.Sprintf("start chapter %d is after end chapter %d", r.Start, r.End), nil)
	}
	changed := 0
	out := chapterNumber.ReplaceAllStringFunc(text, func(match string) string {
		n, err := strconv.Atoi(chapterNumber.FindStringSubmatch(match)[1])
		if err != nil || n < r.Start || n > r.End {
			return match
		}
		changed++
		return fmt.Sprintf("第%d章", n+r.Increment)
	})
	return out, changed, nil
}

// Heading is a "第N章 name" line found in the text.
type Heading struct {
	Number int
	Name   string
	// numStart and numEnd delimit the digits in the text.
	numStart, numEnd int
}

// Headings lists the chapter headings in document order.
func Headings(text string) []Heading {
	var out []Heading
	for _, m := range chapterHeading.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		out = append(out, Heading{
			Number:   n,
			Name:     strings.TrimSpace(text[m[4]:m[5]]),
			numStart: m[2],
			numEnd:   m[3],
		})
	}
	return out
}

// normalizeName drops punctuation and spacing so names typed by hand match
// the headings in the file.
func normalizeName(name string) string {
	return nameNoise.ReplaceAllString(name, "")
}

// NameRenumber shifts the headings from the first one named StartName to the
// last one named EndName, in document order, by Increment.
type NameRenumber struct {
	StartName string
	EndName   string
	Increment int
}

// Plan returns the headings Process would change.
func (r NameRenumber) Plan(text string) ([]Heading, error) {
	headings := Headings(text)
	if len(headings) == 0 {
		return nil, data.NewError(data.KindNotFound, "no chapter headings in file", nil)
	}

	start, end := -1, -1
	wantStart, wantEnd := normalizeName(r.StartName), normalizeName(r.EndName)
	for i, h := range headings {
		name := normalizeName(h.Name)
		if name == wantStart && start < 0 {
			start = i
		}
		if name == wantEnd {
			end = i
		}
	}

	switch {
	case start < 0:
		return nil, data.NewError(data.KindNotFound, fmt.Sprintf("no chapter named %q", r.StartName), nil)
	case end < 0:
		return nil, data.NewError(data.KindNotFound, fmt.Sprintf("no chapter named %q", r.EndName), nil)
	case start > end:
		return nil, data.NewError(data.KindConfig,
			fmt.Sprintf("chapter %q comes after %q in the file", r.StartName, r.EndName), nil)
	}
	return headings[start : end+1], nil
}

func (r NameRenumber) Process(text string) (string, int, error) {
	plan, err := r.Plan(text)
	if err != nil {
		return "", 0, err
	}

	var b strings.Builder
	last := 0
	for _, h := range plan {
		b.WriteString(text[last:h.numStart])
		b.WriteString(strconv.Itoa(h.Number + r.Increment))
		last = h.numEnd
	}
	b.WriteString(text[last:])
	return b.String(), len(plan), nil
}
