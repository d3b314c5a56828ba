// Package match decides whether a normalized post counts as a mention of a
// keyword. Matching runs at read time over cached, policy-agnostic posts, so
// the same cached data can be re-filtered under either policy without a new
// collection.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qepting91/buzzscope/internal/domain"
)

// Matcher applies one keyword/policy pair to post text.
type Matcher struct {
	keyword string
	policy  domain.MatchPolicy
	exact   *regexp.Regexp
}

// New compiles a matcher for the normalized form of keyword.
func New(keyword string, policy domain.MatchPolicy) (*Matcher, error) {
	normalized := domain.NormalizeKeyword(keyword)
	if normalized == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	m := &Matcher{keyword: normalized, policy: policy}

	if policy == domain.MatchExact {
		// Word-boundary semantics: "ai" matches "the AI model" but not
		// "airplane" or "said".
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(normalized) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile exact pattern for %q: %w", normalized, err)
		}
		m.exact = re
	}

	return m, nil
}

// Keyword returns the normalized keyword the matcher was built for.
func (m *Matcher) Keyword() string { return m.keyword }

// MatchText reports whether the text mentions the keyword under the policy.
func (m *Matcher) MatchText(text string) bool {
	lowered := strings.ToLower(text)
	if m.policy == domain.MatchExact {
		return m.exact.MatchString(lowered)
	}
	return strings.Contains(lowered, m.keyword)
}

// MatchPost checks the concatenation of title and body. Absent fields act as
// empty strings rather than being skipped.
func (m *Matcher) MatchPost(p domain.Post) bool {
	return m.MatchText(p.Title + " " + p.Body)
}

// Matches is a one-shot convenience for a single text check.
func Matches(text, keyword string, policy domain.MatchPolicy) bool {
	m, err := New(keyword, policy)
	if err != nil {
		return false
	}
	return m.MatchText(text)
}
