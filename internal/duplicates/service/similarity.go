package service

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameKey lower-cases, strips diacritics and collapses whitespace so that
// "José  Müller" and "jose muller" compare equal.
func nameKey(first, last string) string {
	joined := strings.ToLower(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), joined)
	if err != nil {
		folded = joined
	}
	return strings.Join(strings.Fields(folded), " ")
}

// namePrefix returns the first two runes of the lower-cased first name, or
// false when the name is shorter than that.
func namePrefix(first string) (string, bool) {
	r := []rune(strings.ToLower(strings.TrimSpace(first)))
	if len(r) < 2 {
		return "", false
	}
	return string(r[:2]), true
}

// similarityPercent is the edit-distance similarity of a and b as 0..100.
func similarityPercent(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	if len(ar) > len(br) {
		ar, br = br, ar
	}

	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}
