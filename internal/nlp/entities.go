package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

const monthPattern = `(?i:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

type pattern struct {
	re       *regexp.Regexp
	typ      string
	priority int
	// group selects a capture group as the entity span; 0 is the whole match.
	group int
}

var patterns = []pattern{
	{regexp.MustCompile(`\b` + monthPattern + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\.?,?\s+\d{4}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b` + monthPattern + `\.?,?\s+\d{4}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\bQ[1-4]\s+\d{4}\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b` + monthPattern + `\s+\d{1,2}(?:st|nd|rd|th)?\b`), models.EntityDate, 0, 0},
	{regexp.MustCompile(`\b(?i:in|since|during|by|until|from|before|after|of)\s+((?:19|20)\d{2})\b`), models.EntityDate, 0, 1},
	{regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand|[MBK]\b))?`), models.EntityMoney, 1, 0},
	{regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?\s?(?:USD|EUR|GBP|KES|dollars|euros|pounds)\b`), models.EntityMoney, 1, 0},
	{regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:%|percent\b|per cent\b)`), models.EntityPercent, 2, 0},
}

const namePriority = 3

var calendarWords = newSet([]string{
	"january", "february", "march", "april", "may", "june", "july", "august", "september",
	"october", "november", "december", "jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep",
	"sept", "oct", "nov", "dec", "monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday",
})

var acronymExclusions = newSet([]string{
	"ok", "id", "no", "pdf", "usd", "eur", "gbp", "kes", "faq", "tbd", "am", "pm", "vat",
	"qty", "ps", "re", "cc", "fyi", "etc",
})

var runConnectors = newSet([]string{"of", "for", "de", "du", "la", "van", "von"})

type candidate struct {
	start, end int
	typ        string
	priority   int
}

// EntityRecognizer finds typed spans with patterns for dates and amounts and
// with capitalization and word-list rules for names. Surface forms that differ
// only by case, spacing, punctuation or a small edit distance are folded into
// one entity.
type EntityRecognizer struct {
	lex *Lexicon
	// MaxEditDistance bounds folding of names of at least six characters.
	MaxEditDistance int
}

func NewEntityRecognizer(lex *Lexicon) *EntityRecognizer {
	return &EntityRecognizer{lex: lex, MaxEditDistance: 1}
}

func (r *EntityRecognizer) Recognize(ctx context.Context, text string) (models.EntityCollection, error) {
	var cands []candidate
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*p.group], m[2*p.group+1]
			if start < 0 || end <= start {
				continue
			}
			cands = append(cands, candidate{start: start, end: end, typ: p.typ, priority: p.priority})
		}
	}
	if err := ctx.Err(); err != nil {
		return models.EntityCollection{}, err
	}

	names, unresolved := r.nameCandidates(text)
	cands = append(cands, names...)
	cands = append(cands, r.resolveAliases(text, names, unresolved)...)
	if err := ctx.Err(); err != nil {
		return models.EntityCollection{}, err
	}

	return r.collect(resolveOverlaps(cands), text), nil
}

// resolveOverlaps keeps the earliest, then longest, then highest priority
// candidate and drops anything overlapping it.
func resolveOverlaps(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end != b.end {
			return a.end > b.end
		}
		return a.priority < b.priority
	})
	out := cands[:0]
	lastEnd := -1
	for _, c := range cands {
		if c.start < lastEnd {
			continue
		}
		out = append(out, c)
		lastEnd = c.end
	}
	return out
}

// nameCandidates classifies runs of capitalized words. Runs no rule could
// type are returned separately for alias resolution.
func (r *EntityRecognizer) nameCandidates(text string) (resolved, unresolved []candidate) {
	tokens := textutil.Words(text)
	for i := 0; i < len(tokens); {
		if !isCapitalized(tokens[i].Text) {
			i++
			continue
		}
		run := []textutil.Token{tokens[i]}
		j := i
		for j+1 < len(tokens) {
			gap := text[tokens[j].End:tokens[j+1].Start]
			next := tokens[j+1]
			switch {
			case (gap == " " || gap == " & ") && isCapitalized(next.Text):
				run = append(run, next)
				j++
				continue
			case gap == ". " && isCapitalized(next.Text) &&
				(r.lex.personTitles.has(tokens[j].Text) || utf8.RuneCountInString(tokens[j].Text) == 1):
				run = append(run, next)
				j++
				continue
			case gap == " " && runConnectors.has(next.Text) && j+2 < len(tokens) &&
				text[next.End:tokens[j+2].Start] == " " && isCapitalized(tokens[j+2].Text):
				run = append(run, next, tokens[j+2])
				j += 2
				continue
			}
			break
		}
		if c, ok := r.classifyRun(text, run); ok {
			if c.typ == "" {
				unresolved = append(unresolved, c)
			} else {
				resolved = append(resolved, c)
			}
		}
		i = j + 1
	}
	return resolved, unresolved
}

// resolveAliases types a leftover run when it repeats part of an entity typed
// elsewhere in the text: a surname of a full PERSON name, or an ORG name
// without its legal suffix.
func (r *EntityRecognizer) resolveAliases(text string, resolved, unresolved []candidate) []candidate {
	aliases := map[string]string{}
	for _, c := range resolved {
		key := normalizeEntity(text[c.start:c.end], c.typ)
		fields := strings.Fields(key)
		switch {
		case c.typ == models.EntityPerson && len(fields) > 1:
			aliases[fields[len(fields)-1]] = models.EntityPerson
		case c.typ == models.EntityOrg:
			if short := r.stripOrgSuffix(key); short != key {
				aliases[short] = models.EntityOrg
			}
		}
	}

	var out []candidate
	for _, c := range unresolved {
		if typ, ok := aliases[normalizeEntity(text[c.start:c.end], "")]; ok {
			c.typ = typ
			out = append(out, c)
		}
	}
	return out
}

func (r *EntityRecognizer) classifyRun(text string, run []textutil.Token) (candidate, bool) {
	for len(run) > 0 && (r.lex.stopwords.has(run[0].Text) || calendarWords.has(run[0].Text)) {
		run = run[1:]
	}
	forcedPerson := false
	if len(run) > 1 && r.lex.personTitles.has(run[0].Text) {
		run = run[1:]
		forcedPerson = true
	}
	for len(run) > 0 && (calendarWords.has(run[len(run)-1].Text) || runConnectors.has(run[len(run)-1].Text)) {
		run = run[:len(run)-1]
	}
	if len(run) == 0 {
		return candidate{}, false
	}

	start := run[0].Start
	end := run[len(run)-1].End
	if last := run[len(run)-1].Text; strings.HasSuffix(last, "'s") || strings.HasSuffix(last, "’s") {
		end -= len(last) - len(stripPossessive(last))
	}
	words := make([]string, len(run))
	for i, t := range run {
		words[i] = strings.ToLower(stripPossessive(t.Text))
	}
	first, last := words[0], words[len(words)-1]
	phrase := strings.Join(strings.Fields(strings.ToLower(stripPossessive(text[start:end]))), " ")

	c := candidate{start: start, end: end, priority: namePriority}
	switch {
	case forcedPerson:
		c.typ = models.EntityPerson
	case len(words) > 1 && r.lex.orgSuffixes.has(last):
		c.typ = models.EntityOrg
	case r.lex.places.has(phrase):
		c.typ = models.EntityGPE
	case len(words) > 1 && r.lex.orgPrefixes.has(first):
		c.typ = models.EntityOrg
	case len(words) > 1 && r.lex.eventKeywords.has(last):
		c.typ = models.EntityEvent
	case r.lex.givenNames.has(first) && len(words) <= 3 && !containsAny(words, runConnectors):
		c.typ = models.EntityPerson
	case len(words) == 1 && isAcronym(run[0].Text) && !acronymExclusions.has(first) &&
		!r.lex.stopwords.has(first) && !lineIsUpper(text, start):
		c.typ = models.EntityOrg
	}
	return c, true
}

func (r *EntityRecognizer) collect(cands []candidate, text string) models.EntityCollection {
	coll := models.NewEntityCollection()
	type cluster struct {
		key     string
		display string
	}
	clusters := map[string][]*cluster{}

	for _, c := range cands {
		surface := text[c.start:c.end]
		key := normalizeEntity(surface, c.typ)
		if key == "" {
			continue
		}

		var match *cluster
		for _, cl := range clusters[c.typ] {
			if r.sameEntity(c.typ, key, cl.key) {
				match = cl
				break
			}
		}
		if match == nil {
			match = &cluster{key: key, display: strings.Join(strings.Fields(surface), " ")}
			clusters[c.typ] = append(clusters[c.typ], match)
			coll.UniqueEntities[c.typ] = append(coll.UniqueEntities[c.typ], match.display)
		}

		coll.Entities = append(coll.Entities, models.Entity{
			Text:       surface,
			Type:       c.typ,
			Start:      c.start,
			End:        c.end,
			Normalized: match.key,
		})
		coll.EntityTypes[c.typ]++
	}
	coll.TotalEntities = len(coll.Entities)
	return coll
}

func (r *EntityRecognizer) sameEntity(typ, a, b string) bool {
	if a == b {
		return true
	}
	switch typ {
	case models.EntityDate, models.EntityMoney, models.EntityPercent:
		return false
	}

	if typ == models.EntityPerson {
		// a bare surname or first name refers back to an earlier full name
		if !strings.Contains(a, " ") && strings.Contains(b, " ") {
			parts := strings.Fields(b)
			if a == parts[len(parts)-1] || a == parts[0] {
				return true
			}
		}
	}
	if typ == models.EntityOrg && r.stripOrgSuffix(a) == r.stripOrgSuffix(b) {
		return true
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la < 6 || lb < 6 || r.MaxEditDistance <= 0 {
		return false
	}
	limit := r.MaxEditDistance
	if la >= 12 && lb >= 12 {
		limit++
	}
	return levenshtein.Distance(a, b, nil) <= limit
}

func (r *EntityRecognizer) stripOrgSuffix(key string) string {
	fields := strings.Fields(key)
	for len(fields) > 1 && r.lex.orgSuffixes.has(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// normalizeEntity produces the comparison key for a surface form.
func normalizeEntity(surface, typ string) string {
	key := textutil.Normalize(surface)
	key = stripPossessive(key)
	key = strings.Trim(key, ".,;:!?\"'()[]")
	switch typ {
	case models.EntityMoney, models.EntityPercent:
		key = strings.NewReplacer(" ", "", ",", "").Replace(key)
	case models.EntityDate:
		key = strings.ReplaceAll(key, ",", "")
	}
	return key
}

func stripPossessive(s string) string {
	s = strings.TrimSuffix(s, "'s")
	return strings.TrimSuffix(s, "’s")
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func isAcronym(word string) bool {
	n := utf8.RuneCountInString(word)
	if n < 2 || n > 5 {
		return false
	}
	for _, r := range word {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// lineIsUpper reports whether the line holding offset has no lower-case
// letters, as in a heading.
func lineIsUpper(text string, offset int) bool {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += offset
	}
	for _, r := range text[start:end] {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func containsAny(words []string, s set) bool {
	for _, w := range words {
		if s.has(w) {
			return true
		}
	}
	return false
}
