// Package match resolves stock product names against configured limit names.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// latin letters that are visually identical to cyrillic ones
var (
	upperHomoglyphs = strings.NewReplacer(
		"A", "А", "B", "В", "C", "С", "E", "Е", "H", "Н",
		"K", "К", "M", "М", "O", "О", "P", "Р", "T", "Т",
		"X", "Х", "Y", "У",
		"–", "-", "—", "-",
	)
	lowerHomoglyphs = strings.NewReplacer(
		"a", "а", "c", "с", "e", "е", "o", "о",
		"p", "р", "x", "х", "y", "у",
	)
)

var tokenPattern = regexp.MustCompile(`\d+|[a-zA-Zа-яА-ЯёЁ]+`)

// Normalize folds a product name to the form used for loose comparison:
// NFKC, cyrillic homoglyphs, plain dashes, single spaces, lower case.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	s := norm.NFKC.String(name)
	s = upperHomoglyphs.Replace(s)
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	return lowerHomoglyphs.Replace(strings.ToLower(s))
}

// Tokens splits a normalized name into digit runs and letter runs.
func Tokens(name string) []string {
	return tokenPattern.FindAllString(Normalize(name), -1)
}

// Index resolves names to one of a fixed set of keys.
type Index struct {
	keys       []string
	exact      map[string]struct{}
	normalized map[string]string
	tokens     [][]string
	fuzzy      bool
}

// NewIndex builds an index over keys. When two keys normalize to the same
// form the first one wins. fuzzy enables token matching as a last resort.
func NewIndex(keys []string, fuzzy bool) *Index {
	ix := &Index{
		keys:       keys,
		exact:      make(map[string]struct{}, len(keys)),
		normalized: make(map[string]string, len(keys)),
		fuzzy:      fuzzy,
	}
	for _, k := range keys {
		ix.exact[k] = struct{}{}
		n := Normalize(k)
		if _, taken := ix.normalized[n]; !taken {
			ix.normalized[n] = k
		}
	}
	if fuzzy {
		ix.tokens = make([][]string, len(keys))
		for i, k := range keys {
			ix.tokens[i] = Tokens(k)
		}
	}
	return ix
}

// Resolve returns the key name matches, trying exact, normalized and then
// token matching.
func (ix *Index) Resolve(name string) (string, bool) {
	if _, ok := ix.exact[name]; ok {
		return name, true
	}
	if k, ok := ix.normalized[Normalize(name)]; ok {
		return k, true
	}
	if !ix.fuzzy {
		return "", false
	}
	return ix.bestTokenMatch(name)
}

// bestTokenMatch scores every key whose tokens are all present in name.
// Numbers only match whole tokens so "25" never matches "250"; words may
// match as substrings. Keys matched entirely by whole tokens rank first.
func (ix *Index) bestTokenMatch(name string) (string, bool) {
	productTokens := Tokens(name)
	if len(productTokens) == 0 {
		return "", false
	}
	present := make(map[string]struct{}, len(productTokens))
	for _, t := range productTokens {
		present[t] = struct{}{}
	}

	best, bestScore := "", 0
	for i, key := range ix.keys {
		keyTokens := ix.tokens[i]
		if len(keyTokens) == 0 {
			continue
		}
		exact, partial := 0, 0
		for _, kt := range keyTokens {
			if _, ok := present[kt]; ok {
				exact++
				continue
			}
			if isDigits(kt) {
				continue
			}
			for _, pt := range productTokens {
				if !isDigits(pt) && strings.Contains(pt, kt) {
					partial++
					break
				}
			}
		}

		var score int
		switch {
		case exact == len(keyTokens):
			score = exact*10000 + len(key)
		case exact+partial >= len(keyTokens):
			score = exact*1000 + partial*100 + len(key)
		default:
			continue
		}
		if score > bestScore {
			best, bestScore = key, score
		}
	}
	return best, best != ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
