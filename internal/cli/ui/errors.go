package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// NotFound describes a name that matched nothing
type NotFound struct {
	Kind       string
	Name       string
	Candidates []string
	Help       string
}

// FormatNotFound renders a not-found message with close matches from the candidates.
//
//	SPECIFICATION NOT FOUND: Custmer
//	   Did you mean: Customer?
//	   → facetmodel introspect specs
func FormatNotFound(nf NotFound, noColor bool) string {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if noColor {
		red.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	var b strings.Builder
	red.Fprintf(&b, "%s NOT FOUND: %s\n", strings.ToUpper(nf.Kind), nf.Name)
	if suggestions := Suggest(nf.Name, nf.Candidates, DefaultMaxDistance, DefaultMaxSuggestions); len(suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(suggestions, ", "))
	}
	if nf.Help != "" {
		cyan.Fprintf(&b, "   → %s\n", nf.Help)
	}
	return b.String()
}

// WriteNotFound writes FormatNotFound to w
func WriteNotFound(w io.Writer, nf NotFound, noColor bool) {
	fmt.Fprint(w, FormatNotFound(nf, noColor))
}

const (
	// DefaultMaxDistance is the largest edit distance still offered as a suggestion
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps the number of suggestions
	DefaultMaxSuggestions = 3
)

// Suggest returns the candidates within maxDistance edits of target, closest first and
// alphabetically within the same distance. Matching ignores case.
func Suggest(target string, candidates []string, maxDistance, limit int) []string {
	type match struct {
		value    string
		distance int
	}
	var matches []match
	lower := strings.ToLower(target)
	for _, candidate := range candidates {
		if d := Distance(lower, strings.ToLower(candidate)); d <= maxDistance {
			matches = append(matches, match{candidate, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, min(limit, len(matches)))
	for i := 0; i < len(matches) && i < limit; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}
