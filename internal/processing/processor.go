package processing

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/avicke/arxiv-store/internal/models"
)

// DefaultKeywordLimit caps the keywords derived from one abstract.
const DefaultKeywordLimit = 10

// SentinelDate is stored when a paper carries no usable timestamp. It sorts
// before every real date.
const SentinelDate = "0000-00-00"

// Rejection reasons surfaced by Normalize.
var (
	ErrMissingID  = errors.New("paper has no id")
	ErrBadID      = errors.New("paper id contains characters outside the allowed alphabet")
	ErrNoCategory = errors.New("paper has no category")
)

var wordRegex = regexp.MustCompile(`[a-zA-Z]+`)

// validIDPattern restricts ids to the arXiv alphabet plus separators. What it
// excludes matters most: '#', the byte that delimits the segments of every
// composite key the id ends up embedded in.
var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9./_-]+$`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {},
	"our": {}, "use": {}, "using": {}, "based": {}, "approach": {},
	"method": {}, "paper": {}, "propose": {}, "proposed": {}, "show": {},
	"shows": {},
}

// Tokenize lowercases the input and returns the maximal alphabetic runs that
// are longer than two characters and not stopwords.
func Tokenize(text string) []string {
	matches := wordRegex.FindAllString(strings.ToLower(text), -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(matches))
	for _, tok := range matches {
		if len(tok) <= 2 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// ExtractKeywords returns the most frequent tokens of text, at most limit of
// them, ordered by descending frequency. Ties keep the order in which the
// tokens first appeared.
func ExtractKeywords(text string, limit int) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]int, len(tokens))
	firstSeen := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if _, ok := firstSeen[tok]; !ok {
			firstSeen[tok] = i
		}
		freq[tok]++
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] == freq[words[j]] {
			return firstSeen[words[i]] < firstSeen[words[j]]
		}
		return freq[words[i]] > freq[words[j]]
	})

	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	if limit > len(words) {
		limit = len(words)
	}
	return words[:limit]
}

// PubDate derives the YYYY-MM-DD sort-key date from an ISO-8601-ish
// timestamp, falling back to the sentinel when the input is too short.
func PubDate(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if len(s) < 10 {
		return SentinelDate
	}
	return s[:10]
}

// Normalize validates a raw record into a canonical paper. It rejects records
// without a usable id or without at least one category; everything else is
// cleaned up rather than rejected.
func Normalize(raw models.RawPaper) (models.Paper, error) {
	id := strings.TrimSpace(raw.ArxivID)
	if id == "" {
		id = strings.TrimSpace(raw.ID)
	}
	if id == "" {
		return models.Paper{}, ErrMissingID
	}
	if !validIDPattern.MatchString(id) {
		return models.Paper{}, ErrBadID
	}

	categories := dedupeTrim(raw.Categories)
	if len(categories) == 0 {
		return models.Paper{}, ErrNoCategory
	}

	published := strings.TrimSpace(raw.Published)
	if published == "" {
		published = strings.TrimSpace(raw.Date)
	}
	pubDate := PubDate(published)
	if published == "" {
		published = pubDate + "T00:00:00Z"
	}

	abstract := strings.TrimSpace(raw.Abstract)

	return models.Paper{
		ArxivID:    id,
		Title:      strings.TrimSpace(raw.Title),
		Authors:    dedupeTrim(raw.Authors),
		Abstract:   abstract,
		Categories: categories,
		Keywords:   ExtractKeywords(abstract, DefaultKeywordLimit),
		Published:  published,
		PubDate:    pubDate,
	}, nil
}

// dedupeTrim trims every value, drops blanks and repeats, and preserves the
// original order.
func dedupeTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
