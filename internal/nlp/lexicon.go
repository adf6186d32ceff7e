// Package nlp holds the rule-based enrichment stages run over extracted text:
// entity recognition, sentiment, classification and key phrases.
package nlp

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

type lexiconFile struct {
	Stopwords []string `yaml:"stopwords"`
	Sentiment struct {
		Positive     []string `yaml:"positive"`
		Negative     []string `yaml:"negative"`
		Negators     []string `yaml:"negators"`
		Intensifiers []string `yaml:"intensifiers"`
	} `yaml:"sentiment"`
	Categories map[string][]string `yaml:"categories"`
	Entities   struct {
		PersonTitles  []string `yaml:"person_titles"`
		GivenNames    []string `yaml:"given_names"`
		OrgSuffixes   []string `yaml:"org_suffixes"`
		OrgPrefixes   []string `yaml:"org_prefixes"`
		EventKeywords []string `yaml:"event_keywords"`
		Places        []string `yaml:"places"`
	} `yaml:"entities"`
}

type categoryMatcher struct {
	name     string
	patterns []*regexp.Regexp
}

// Lexicon is the compiled, read-only form of the word lists. It is safe for
// concurrent use.
type Lexicon struct {
	stopwords    set
	positive     set
	negative     set
	negators     set
	intensifiers set
	categories   []categoryMatcher

	personTitles  set
	givenNames    set
	orgSuffixes   set
	orgPrefixes   set
	eventKeywords set
	places        set
}

type set map[string]struct{}

func newSet(words []string) set {
	s := make(set, len(words))
	for _, w := range words {
		s[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return s
}

func (s set) has(w string) bool {
	_, ok := s[strings.ToLower(w)]
	return ok
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconErr  error
	defaultLexiconOnce sync.Once
)

// DefaultLexicon returns the lexicon compiled into the binary.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		defaultLexicon, defaultLexiconErr = parseLexicon(defaultLexiconYAML)
	})
	if defaultLexiconErr != nil {
		panic(fmt.Sprintf("embedded lexicon is invalid: %v", defaultLexiconErr))
	}
	return defaultLexicon
}

// LoadLexicon parses a lexicon document in the embedded format.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return parseLexicon(data)
}

func parseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("lexicon defines no categories")
	}

	lex := &Lexicon{
		stopwords:     newSet(f.Stopwords),
		positive:      newSet(f.Sentiment.Positive),
		negative:      newSet(f.Sentiment.Negative),
		negators:      newSet(f.Sentiment.Negators),
		intensifiers:  newSet(f.Sentiment.Intensifiers),
		personTitles:  newSet(f.Entities.PersonTitles),
		givenNames:    newSet(f.Entities.GivenNames),
		orgSuffixes:   newSet(f.Entities.OrgSuffixes),
		orgPrefixes:   newSet(f.Entities.OrgPrefixes),
		eventKeywords: newSet(f.Entities.EventKeywords),
		places:        newSet(f.Entities.Places),
	}

	names := make([]string, 0, len(f.Categories))
	for name := range f.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := categoryMatcher{name: name}
		for _, kw := range f.Categories[name] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			m.patterns = append(m.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		lex.categories = append(lex.categories, m)
	}
	return lex, nil
}

// Categories lists the category names in sorted order, excluding "other".
func (l *Lexicon) Categories() []string {
	out := make([]string, len(l.categories))
	for i, c := range l.categories {
		out[i] = c.name
	}
	return out
}

func (l *Lexicon) IsStopword(w string) bool {
	return l.stopwords.has(w)
}
