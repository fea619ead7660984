// Package llm - normalize.go recovers a single JSON object from free-form model output.
package llm

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// ParseFailureMessage is the error tag carried by the sentinel failure object.
const ParseFailureMessage = "Failed to parse AI response"

// rawPreviewRunes is how much of the offending text the sentinel keeps.
const rawPreviewRunes = 200

// Strategy names the step of the fallback chain that produced a result.
type Strategy string

// Normalizer strategies, in the order they are attempted.
const (
	StrategyFenced  Strategy = "fenced"
	StrategyLongest Strategy = "longest"
	StrategyGreedy  Strategy = "greedy"
	StrategyPartial Strategy = "partial"
	StrategyNone    Strategy = "none"
)

// Result is the outcome of Normalize. Exactly one of Value-without-Failure or Failure is meaningful;
// on failure Value holds the sentinel object so it can be passed through unchanged.
type Result struct {
	Value    map[string]any
	Strategy Strategy
	Repaired bool
	Failure  *types.ParseFailure
}

// OK reports whether a JSON object (full or partial) was recovered.
func (r Result) OK() bool {
	return r.Failure == nil
}

var (
	fencedObjectRe = regexp.MustCompile("(?i)```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")
	greedyObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

	fenceOpenRe     = regexp.MustCompile("(?i)```(?:json|javascript|js)?\\s*")
	fenceCloseRe    = regexp.MustCompile("(?m)```\\s*$")
	blankLinesRe    = regexp.MustCompile(`\n\s*\n`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Normalize recovers a single JSON object from text returned by a model that was asked to
// return only JSON. It never panics; unrecoverable input yields the sentinel failure.
//
// Candidates are tried in order: the interior of a fenced code block, every outermost
// balanced {...} substring from longest to shortest, and finally the greedy span from the
// first '{' to the last '}'. Each candidate is parsed as-is, then after a string-aware
// tolerant repair, then after the lossy regex repair chain. If nothing parses, known fields
// are scraped out of the raw text.
func Normalize(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failure(text)
		}
	}()

	for _, m := range fencedObjectRe.FindAllStringSubmatch(text, -1) {
		if value, repaired, ok := parseCandidate(m[1]); ok {
			return Result{Value: value, Strategy: StrategyFenced, Repaired: repaired}
		}
	}

	if candidates := outermostObjects(text); len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return len(candidates[i]) > len(candidates[j])
		})
		for _, c := range candidates {
			if value, repaired, ok := parseCandidate(c); ok {
				return Result{Value: value, Strategy: StrategyLongest, Repaired: repaired}
			}
		}
	}

	if greedy := greedyObjectRe.FindString(text); greedy != "" {
		if value, repaired, ok := parseCandidate(greedy); ok {
			return Result{Value: value, Strategy: StrategyGreedy, Repaired: repaired}
		}
	}

	if !strings.Contains(text, "{") {
		return failure(text)
	}
	if partial := extractPartialFields(text); len(partial) > 0 {
		return Result{Value: partial, Strategy: StrategyPartial, Repaired: true}
	}

	return failure(text)
}

// failure builds the sentinel result carrying a preview of the offending text.
func failure(text string) Result {
	pf := &types.ParseFailure{
		Error:       ParseFailureMessage,
		RawResponse: Preview(text, rawPreviewRunes) + "...",
	}
	return Result{
		Value:    map[string]any{"error": pf.Error, "rawResponse": pf.RawResponse},
		Strategy: StrategyNone,
		Failure:  pf,
	}
}

// Preview returns at most n runes of text without splitting a multi-byte character.
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}

// parseCandidate tries a candidate verbatim, then tolerantly repaired, then regex-repaired.
func parseCandidate(candidate string) (map[string]any, bool, bool) {
	if v, ok := decodeObject(candidate); ok {
		return v, false, true
	}
	if v, ok := decodeObject(tolerantRepair(candidate)); ok {
		return v, true, true
	}
	if v, ok := decodeObject(regexRepair(candidate)); ok {
		return v, true, true
	}
	return nil, false, false
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// outermostObjects returns every top-level balanced {...} span in text.
// Braces inside double-quoted strings are ignored; an unterminated span is dropped.
func outermostObjects(text string) []string {
	var (
		out      []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, text[start:i+1])
				start = -1
			}
		}
	}
	return out
}

// regexRepair is the line-oriented repair chain. The single-quote conversion cannot tell
// a string delimiter from an apostrophe inside a value and is therefore lossy; it only runs
// after the tolerant repair has failed.
func regexRepair(s string) string {
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	s = strings.TrimSpace(s)

	s = replaceUnescapedSingleQuotes(s)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func replaceUnescapedSingleQuotes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	var prev rune
	for _, r := range s {
		if r == '\'' && prev != '\\' {
			sb.WriteRune('"')
		} else {
			sb.WriteRune(r)
		}
		prev = r
	}
	return sb.String()
}

// tolerantRepair rewrites JSON5-style input into strict JSON while respecting string
// boundaries: single-quoted strings become double-quoted, bare identifier keys are quoted,
// trailing commas and comments are dropped, and raw control characters inside strings are
// escaped. Apostrophes inside double-quoted values are left alone.
func tolerantRepair(s string) string {
	src := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s) + 16)

	n := len(src)
	lastSignificant := rune(0)

	for i := 0; i < n; i++ {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			i = copyString(src, i, &sb)
			lastSignificant = '"'
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
			i--
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
		case c == ',':
			j := i + 1
			for j < n && isSpace(src[j]) {
				j++
			}
			if j < n && (src[j] == '}' || src[j] == ']') {
				continue
			}
			sb.WriteRune(c)
			lastSignificant = c
		case isIdentStart(c) && (lastSignificant == '{' || lastSignificant == ','):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			k := j
			for k < n && isSpace(src[k]) {
				k++
			}
			if k < n && src[k] == ':' {
				sb.WriteByte('"')
				sb.WriteString(string(src[i:j]))
				sb.WriteByte('"')
				i = j - 1
				lastSignificant = '"'
				continue
			}
			sb.WriteRune(c)
			lastSignificant = c
		default:
			sb.WriteRune(c)
			if !isSpace(c) {
				lastSignificant = c
			}
		}
	}
	return sb.String()
}

// copyString writes the string literal starting at src[start] as a double-quoted JSON string
// and returns the index of its closing quote (or the last index if unterminated).
func copyString(src []rune, start int, sb *strings.Builder) int {
	quote := src[start]
	sb.WriteByte('"')
	i := start + 1
	for ; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			next := src[i+1]
			if quote == '\'' && next == '\'' {
				sb.WriteRune('\'')
			} else {
				sb.WriteRune(c)
				sb.WriteRune(next)
			}
			i++
		case c == quote:
			sb.WriteByte('"')
			return i
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(c)
		}
	}
	return i - 1
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\r' || r == '\t'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// partialStringFields and partialListFields are the record fields worth salvaging from a
// response that cannot be parsed as a whole.
var (
	partialStringFields = []string{
		"name", "description", "founded", "size", "cuisine", "priceRange", "website",
		"phone", "email", "businessHours", "digitalMaturity", "franchiseStatus", "marketPosition",
	}
	partialListFields = []string{
		"locations", "menuHighlights", "recentUpdates", "keyStrengths", "challenges",
		"painPoints", "growthSignals", "competitiveAdvantages", "operationalChallenges",
		"conversationStarters", "valuePropositions",
	}
	partialNumberFields = []string{"rating", "reviewCount"}

	quotedItemRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

var (
	partialStringRes = compileFieldPatterns(partialStringFields, `\s*:\s*"((?:[^"\\]|\\.)*)"`)
	partialListRes   = compileFieldPatterns(partialListFields, `\s*:\s*\[([^\]]*)`)
	partialNumberRes = compileFieldPatterns(partialNumberFields, `\s*:\s*"?(-?\d+(?:\.\d+)?)`)
)

func compileFieldPatterns(fields []string, valuePattern string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(fields))
	for _, f := range fields {
		out[f] = regexp.MustCompile(`"` + regexp.QuoteMeta(f) + `"` + valuePattern)
	}
	return out
}

// extractPartialFields scans raw text for well-known fields. A string value is kept only when
// its closing quote is followed by a JSON delimiter, so truncated tails and values broken by
// unescaped quotes are dropped rather than returned half-written.
func extractPartialFields(text string) map[string]any {
	out := map[string]any{}

	for field, re := range partialStringRes {
		if m := re.FindStringSubmatchIndex(text); m != nil && closesValue(text[m[1]:]) {
			out[field] = unescapeJSONString(text[m[2]:m[3]])
		}
	}

	for field, re := range partialListRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var items []any
		for _, item := range quotedItemRe.FindAllStringSubmatch(m[1], -1) {
			items = append(items, unescapeJSONString(item[1]))
		}
		if len(items) > 0 {
			out[field] = items
		}
	}

	for field, re := range partialNumberRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				out[field] = f
			}
		}
	}

	return out
}

// closesValue reports whether rest, the text after a closing quote, continues like JSON.
func closesValue(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest == "" || strings.ContainsRune(",}]", rune(rest[0]))
}

func unescapeJSONString(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return s
}
