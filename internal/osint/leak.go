package osint

import (
	"context"
	"strings"
	"time"
	"unicode"
)

const leakSource = "Ransomwatch leak list"

type LeakResult struct {
	Found bool   `json:"found"`
	Match string `json:"match,omitempty"`
	Group string `json:"group,omitempty"`
	// Stale means the list could not be refreshed; Found reflects an older
	// copy, or no copy at all when ListAge is zero.
	Stale   bool      `json:"stale,omitempty"`
	ListAge time.Time `json:"list_age,omitempty"`
}

// LeakLookup matches a vendor against the shared leak list.
type LeakLookup struct {
	list *LeakList
}

func NewLeakLookup(list *LeakList) *LeakLookup {
	return &LeakLookup{list: list}
}

func (l *LeakLookup) Check(ctx context.Context, name, domain string) LeakResult {
	posts, fetchedAt, fresh := l.list.Posts(ctx)
	res := LeakResult{Stale: !fresh, ListAge: fetchedAt}
	if post, ok := MatchLeakPost(posts, name, domain); ok {
		res.Found = true
		res.Match = post.Title
		res.Group = post.Group
	}
	return res
}

// CheckHeld matches against the list already in memory. The result is
// always stale since nothing was refreshed.
func (l *LeakLookup) CheckHeld(name, domain string) LeakResult {
	posts, fetchedAt := l.list.Held()
	res := LeakResult{Stale: true, ListAge: fetchedAt}
	if post, ok := MatchLeakPost(posts, name, domain); ok {
		res.Found = true
		res.Match = post.Title
		res.Group = post.Group
	}
	return res
}

// generic company words never count as a match on their own
var commonNameWords = map[string]struct{}{
	"group": {}, "holdings": {}, "limited": {}, "company": {}, "corporation": {},
	"international": {}, "global": {}, "services": {}, "solutions": {},
	"systems": {}, "technologies": {}, "technology": {}, "software": {},
}

// MatchLeakPost reports the first post whose title contains the vendor name
// or domain (case-insensitive), or any significant word of the name.
func MatchLeakPost(posts []LeakPost, name, domain string) (LeakPost, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	domain = NormalizeDomain(domain)

	var words []string
	for _, w := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) <= 3 {
			continue
		}
		if _, common := commonNameWords[w]; common {
			continue
		}
		words = append(words, w)
	}

	for _, p := range posts {
		title := strings.ToLower(p.Title)
		if title == "" {
			continue
		}
		if name != "" && strings.Contains(title, name) {
			return p, true
		}
		if domain != "" && strings.Contains(title, domain) {
			return p, true
		}
		for _, w := range words {
			if containsWord(title, w) {
				return p, true
			}
		}
	}
	return LeakPost{}, false
}

func containsWord(text, word string) bool {
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if tok == word {
			return true
		}
	}
	return false
}
