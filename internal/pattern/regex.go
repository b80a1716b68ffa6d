package pattern

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// AllowAllCommands is the bash allow pattern that grants every command.
const AllowAllCommands = ".*"

// MatchTimeout bounds a single regex evaluation.
const MatchTimeout = 100 * time.Millisecond

const maxCachedRegexes = 512

// Regex is a compiled command pattern with ECMAScript semantics, so
// lookarounds and \b behave the way policy authors expect.
type Regex struct {
	source string
	re     *regexp2.Regexp
}

// CompileRegex compiles pattern or reports why it cannot be used.
func CompileRegex(pattern string) (*Regex, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	re.MatchTimeout = MatchTimeout
	return &Regex{source: pattern, re: re}, nil
}

// String returns the source pattern.
func (r *Regex) String() string { return r.source }

// Match reports whether the pattern matches anywhere in text. A match that
// times out is reported as an error.
func (r *Regex) Match(text string) (bool, error) {
	ok, err := r.re.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("match %q: %w", r.source, err)
	}
	return ok, nil
}

var regexCache = struct {
	sync.Mutex
	m map[string]*Regex
}{m: make(map[string]*Regex)}

func cachedRegex(pattern string) (*Regex, error) {
	regexCache.Lock()
	re, ok := regexCache.m[pattern]
	regexCache.Unlock()
	if ok {
		return re, nil
	}
	re, err := CompileRegex(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Lock()
	if len(regexCache.m) >= maxCachedRegexes {
		clear(regexCache.m)
	}
	regexCache.m[pattern] = re
	regexCache.Unlock()
	return re, nil
}

// MatchRegex reports whether pattern matches anywhere in text. When the pattern
// does not compile it falls back to substring containment of the raw pattern.
// A match that times out counts as no match; deny lists use MatchAnyRegexDeny.
func MatchRegex(text, pattern string) bool {
	ok, _ := matchRegex(text, pattern)
	return ok
}

func matchRegex(text, pattern string) (matched, timedOut bool) {
	re, err := cachedRegex(pattern)
	if err != nil {
		return strings.Contains(text, pattern), false
	}
	ok, err := re.Match(text)
	if err != nil {
		return false, true
	}
	return ok, false
}

// MatchAnyRegex returns the first pattern that matches text.
func MatchAnyRegex(text string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if MatchRegex(text, p) {
			return p, true
		}
	}
	return "", false
}

// MatchAnyRegexDeny is MatchAnyRegex for deny lists: a pattern whose
// evaluation times out on text is reported as matching.
func MatchAnyRegexDeny(text string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if ok, timedOut := matchRegex(text, p); ok || timedOut {
			return p, true
		}
	}
	return "", false
}

// RegexSubsumes reports whether a child command pattern is covered by one of
// the parent patterns: exact match, a parent of ".*", or the parent pattern,
// anchored at both ends, matching the child pattern text. Parent patterns that
// do not compile are skipped.
func RegexSubsumes(child string, parents []string) bool {
	for _, p := range parents {
		if p == child || p == AllowAllCommands {
			return true
		}
		re, err := cachedRegex("^(?:" + p + ")$")
		if err != nil {
			continue
		}
		if ok, err := re.Match(child); err == nil && ok {
			return true
		}
	}
	return false
}
