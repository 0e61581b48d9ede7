package diagnosis

import (
	"regexp"
	"strings"
	"sync"
)

// Tag extraction pulls structured content out of raw model text. Models are
// instructed to wrap the final answer in <answer>...</answer> and, for the
// syndrome-inference stage, their reasoning in <think>...</think>. Matching
// is case-insensitive and spans newlines; only the first occurrence counts.

var (
	tagMu  sync.Mutex
	tagRes = map[string]*regexp.Regexp{}
)

func tagPattern(tag string) *regexp.Regexp {
	tagMu.Lock()
	defer tagMu.Unlock()
	re, ok := tagRes[tag]
	if !ok {
		re = regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
		tagRes[tag] = re
	}
	return re
}

// Extract returns the trimmed content of the first <tag>...</tag> pair, and
// whether a pair was found at all. Absence is not an error.
func Extract(response, tag string) (string, bool) {
	m := tagPattern(tag).FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ExtractAnswer returns the <answer> content, falling back to the full
// trimmed response when the model omitted the tag. Final answers must never
// come back empty just because the model forgot its markers; the second
// return value reports whether the tag was actually present so callers can
// log the fallback.
func ExtractAnswer(response string) (string, bool) {
	if out, ok := Extract(response, "answer"); ok {
		return out, true
	}
	return strings.TrimSpace(response), false
}

// ExtractThink returns the <think> content when present. Reasoning is a bonus
// field, so there is no fallback.
func ExtractThink(response string) (string, bool) {
	return Extract(response, "think")
}
