// Package profile reads personal bests from a World Athletics athlete page.
package profile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/paceline/internal/domain/catalog"
)

// PB is one row of the personal bests table.
type PB struct {
	Discipline  string  `json:"discipline"`
	Performance string  `json:"performance"`
	Date        string  `json:"date,omitempty"` // YYYY-MM-DD when recognised
	Score       float64 `json:"score,omitempty"`
}

// dateLayouts are tried in order; month names match case-insensitively.
var dateLayouts = []string{ //nolint:gochecknoglobals // read-only
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2006-01-02",
	"Jan 2, 2006",
	"02.01.2006",
	"02/01/2006",
}

// Parse extracts personal bests from page HTML. Only the first table that
// yields rows is read.
func Parse(r io.Reader) ([]PB, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return ParseDocument(doc), nil
}

// ParseDocument is Parse over an already loaded document.
func ParseDocument(doc *goquery.Document) []PB {
	var out []PB
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		if strings.TrimSpace(tbl.Text()) == "" {
			return true
		}
		out = parseTable(tbl)
		return len(out) == 0
	})
	return out
}

func parseTable(tbl *goquery.Selection) []PB {
	rows := tbl.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	scoreCol := -1
	rows.First().Find("th").Each(func(i int, th *goquery.Selection) {
		if strings.EqualFold(cellText(th), "score") {
			scoreCol = i
		}
	})

	var out []PB
	rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 2 {
			return
		}
		pb := PB{
			Discipline:  cellText(tds.Eq(0)),
			Performance: strings.ReplaceAll(cellText(tds.Eq(1)), ",", "."),
		}
		if pb.Discipline == "" || pb.Performance == "" {
			return
		}

		// the date sits in the 4th column, or the 3rd on narrow tables
		dateCol := -1
		switch {
		case tds.Length() >= 4:
			dateCol = 3
		case tds.Length() >= 3:
			dateCol = 2
		}
		if dateCol >= 0 {
			if raw := cellText(tds.Eq(dateCol)); strings.IndexFunc(raw, unicode.IsDigit) >= 0 {
				pb.Date = isoDate(raw)
			}
		}

		if scoreCol >= 0 && scoreCol < tds.Length() {
			if v, err := strconv.ParseFloat(cellText(tds.Eq(scoreCol)), 64); err == nil {
				pb.Score = v
			}
		}
		out = append(out, pb)
	})
	return out
}

// Filter keeps the personal bests of catalog events.
func Filter(pbs []PB) []PB {
	out := make([]PB, 0, len(pbs))
	for _, pb := range pbs {
		if catalog.Has(pb.Discipline) {
			out = append(out, pb)
		}
	}
	return out
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func isoDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}
