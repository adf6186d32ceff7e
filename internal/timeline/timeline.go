// Package timeline orders the dated mentions of a document.
package timeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

// DefaultContextRadius is how many bytes on each side of a date are
// considered before trimming to sentence or word boundaries.
const DefaultContextRadius = 100

type Options struct {
	ContextRadius int
	// MaxRelated caps RelatedEntities per event; zero keeps them all.
	MaxRelated int
}

func DefaultOptions() Options {
	return Options{ContextRadius: DefaultContextRadius, MaxRelated: 0}
}

type event struct {
	models.TimelineEvent
	when    time.Time
	parsed  bool
	related map[string]bool
}

// Build turns DATE entities into timeline events. Mentions of the same
// calendar value merge into the first one. Parsed events are sorted
// ascending; the rest follow in document order.
func Build(text string, entities models.EntityCollection, opts Options) []models.TimelineEvent {
	if opts.ContextRadius <= 0 {
		opts.ContextRadius = DefaultContextRadius
	}
	sentences := textutil.Sentences(text)

	var events []*event
	byKey := map[string]*event{}
	for _, e := range entities.Entities {
		if e.Type != models.EntityDate {
			continue
		}
		lo, hi := contextWindow(text, sentences, e.Start, e.End, opts.ContextRadius)

		when, key, ok := Parse(e.Text)
		if !ok {
			key = "?" + e.Normalized
		}
		ev, seen := byKey[key]
		if !seen {
			ev = &event{
				TimelineEvent: models.TimelineEvent{
					Date:            strings.Join(strings.Fields(e.Text), " "),
					Context:         strings.TrimSpace(text[lo:hi]),
					RelatedEntities: []string{},
					Position:        e.Start,
				},
				when:    when,
				parsed:  ok,
				related: map[string]bool{},
			}
			if ok {
				ev.CalendarValue = key
			}
			byKey[key] = ev
			events = append(events, ev)
		}

		for _, other := range entities.Entities {
			if other.Type == models.EntityDate || other.Start < lo || other.End > hi {
				continue
			}
			id := other.Type + ":" + other.Normalized
			if ev.related[id] || (opts.MaxRelated > 0 && len(ev.RelatedEntities) >= opts.MaxRelated) {
				continue
			}
			ev.related[id] = true
			ev.RelatedEntities = append(ev.RelatedEntities, strings.Join(strings.Fields(other.Text), " "))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.parsed != b.parsed {
			return a.parsed
		}
		if a.parsed && !a.when.Equal(b.when) {
			return a.when.Before(b.when)
		}
		return false
	})

	out := make([]models.TimelineEvent, len(events))
	for i, ev := range events {
		out[i] = ev.TimelineEvent
	}
	return out
}

// contextWindow widens [start,end) by radius bytes, then pulls each side in
// to the nearest sentence boundary inside the window, or failing that to a
// word boundary.
func contextWindow(text string, sentences []textutil.Span, start, end, radius int) (int, int) {
	lo := max(0, start-radius)
	hi := min(len(text), end+radius)
	for lo > 0 && lo < start && !utf8.RuneStart(text[lo]) {
		lo++
	}
	for hi < len(text) && hi > end && !utf8.RuneStart(text[hi]) {
		hi--
	}

	sentLo, sentHi := -1, -1
	for _, s := range sentences {
		if s.Start >= lo && s.Start <= start {
			sentLo = s.Start
		}
		if s.End <= hi && s.End >= end && sentHi < 0 {
			sentHi = s.End
		}
	}

	if sentLo >= 0 {
		lo = sentLo
	} else if lo > 0 {
		for lo < start && !isSpaceAt(text, lo-1) {
			lo++
		}
	}
	if sentHi >= 0 {
		hi = sentHi
	} else if hi < len(text) {
		for hi > end && !isSpaceAt(text, hi) {
			hi--
		}
	}
	return lo, hi
}

func isSpaceAt(text string, i int) bool {
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

var (
	ordinalRe = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
	ofRe      = regexp.MustCompile(`(?i)\bof\b`)
	sepRe     = regexp.MustCompile(`(?i)\bsept\b`)
	quarterRe = regexp.MustCompile(`^Q([1-4]) (\d{4})$`)
	yearRe    = regexp.MustCompile(`^\d{4}$`)
	// a mention without a year has no place on a timeline
	hasYearRe = regexp.MustCompile(`\d{4}|/\d{2}$`)
)

var layouts = []struct {
	layout string
	format string
}{
	{"January 2 2006", "2006-01-02"},
	{"Jan 2 2006", "2006-01-02"},
	{"2 January 2006", "2006-01-02"},
	{"2 Jan 2006", "2006-01-02"},
	{"2006-01-02", "2006-01-02"},
	{"January 2006", "2006-01"},
	{"Jan 2006", "2006-01"},
}

// Parse reads a date mention and returns its start instant with a calendar
// key at the precision the mention carries: a day, a month, a quarter or a
// year.
func Parse(s string) (time.Time, string, bool) {
	clean := ordinalRe.ReplaceAllString(s, "$1")
	clean = ofRe.ReplaceAllString(clean, " ")
	clean = sepRe.ReplaceAllString(clean, "Sep")
	clean = strings.NewReplacer(",", " ", ".", " ").Replace(clean)
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		return time.Time{}, "", false
	}

	if m := quarterRe.FindStringSubmatch(strings.ToUpper(clean)); m != nil {
		q, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		t := time.Date(y, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return t, m[2] + "-Q" + m[1], true
	}
	if yearRe.MatchString(clean) {
		y, _ := strconv.Atoi(clean)
		if y < 1000 {
			return time.Time{}, "", false
		}
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), clean, true
	}
	for _, l := range layouts {
		if t, err := time.Parse(l.layout, clean); err == nil {
			return t, t.Format(l.format), true
		}
	}

	if !hasYearRe.MatchString(clean) {
		return time.Time{}, "", false
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil || t.Year() < 1000 {
		return time.Time{}, "", false
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return t, t.Format("2006-01-02"), true
}
