package candidates

import (
	"iter"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Rules controls dictionary expansion. The zero value yields each base word
// unmodified and nothing else.
type Rules struct {
	// CaseVariants adds lower, UPPER, Capitalized and cAPITALIZED-rest forms
	CaseVariants bool
	// Suffixes and Prefixes are applied to every case variant
	Suffixes []string
	Prefixes []string
	// WordSuffixes are applied to the base word only
	WordSuffixes []string
	// Leet maps a lower-case letter to its look-alikes
	Leet map[rune][]string
	// LeetCap bounds leet variants per case variant, counting the
	// unsubstituted form. 0 means no bound.
	LeetCap int
	// PairwiseLimit concatenates every ordered pair (i != j) of the first
	// PairwiseLimit distinct candidates. 0 disables concatenation.
	PairwiseLimit int
}

// DefaultLeet is the look-alike table used by DefaultRules
var DefaultLeet = map[rune][]string{
	'a': {"4", "@"},
	'e': {"3"},
	'i': {"1", "!"},
	'o': {"0"},
	's': {"5", "$"},
	't': {"7"},
	'l': {"1"},
	'g': {"9"},
	'b': {"8"},
}

// DefaultRules returns the full mutation set with the current year
func DefaultRules() Rules {
	return RulesForYear(time.Now().Year())
}

// RulesForYear returns the full mutation set with year as the
// "current year" suffix
func RulesForYear(year int) Rules {
	y := strconv.Itoa(year)
	return Rules{
		CaseVariants: true,
		Suffixes: []string{
			"!", "!!", "123", "1234", "12345",
			"1", "2020", "2021", "2022", "2023", "2024", y,
			"@", "#", "$", "!!!",
		},
		Prefixes:      []string{"!", "@", "#"},
		WordSuffixes:  []string{"123", "!", "@123", y, ".", "_", "-", "@"},
		Leet:          DefaultLeet,
		LeetCap:       10,
		PairwiseLimit: 200,
	}
}

// Expand lazily yields the mutations of words. For each word the order is:
// the word, then for each case variant the variant, its suffixed and
// prefixed forms and its leet forms, then the word with WordSuffixes.
// Pairwise concatenations follow after all words.
//
// Repeats are suppressed within one word's mutations, among base words and
// among the pairwise output. Memory stays proportional to the word list and
// PairwiseLimit squared rather than to the whole output, so two base words
// that share a mutation (admin and Admin both give ADMIN) each yield it.
func Expand(words []string, rules Rules) iter.Seq[string] {
	return func(yield func(string) bool) {
		expanded := make(map[string]struct{})
		var head []string
		inHead := make(map[string]struct{})

		for _, w := range words {
			if w == "" {
				continue
			}
			if _, dup := expanded[w]; dup {
				continue
			}
			expanded[w] = struct{}{}

			seen := make(map[string]struct{})
			emit := func(s string) bool {
				if s == "" {
					return true
				}
				if _, dup := seen[s]; dup {
					return true
				}
				seen[s] = struct{}{}
				if _, dup := inHead[s]; !dup && len(head) < rules.PairwiseLimit {
					inHead[s] = struct{}{}
					head = append(head, s)
				}
				return yield(s)
			}

			if !emitWord(w, rules, emit) {
				return
			}
		}

		// head entries are already out, so they count as seen
		pairs := inHead
		for i := range head {
			for j := range head {
				if i == j {
					continue
				}
				pair := head[i] + head[j]
				if _, dup := pairs[pair]; dup {
					continue
				}
				pairs[pair] = struct{}{}
				if !yield(pair) {
					return
				}
			}
		}
	}
}

// emitWord passes every mutation of w to emit and stops when it returns false
func emitWord(w string, rules Rules, emit func(string) bool) bool {
	if !emit(w) {
		return false
	}

	for _, v := range caseVariants(w, rules.CaseVariants) {
		if !emit(v) {
			return false
		}
		for _, s := range rules.Suffixes {
			if !emit(v + s) {
				return false
			}
		}
		for _, p := range rules.Prefixes {
			if !emit(p + v) {
				return false
			}
		}
		if len(rules.Leet) > 0 {
			for l := range Take(LeetVariants(v, rules.Leet), rules.LeetCap) {
				if !emit(l) {
					return false
				}
			}
		}
	}

	for _, s := range rules.WordSuffixes {
		if !emit(w + s) {
			return false
		}
	}
	return true
}

// caseVariants returns the distinct case forms of w, w itself first
func caseVariants(w string, enabled bool) []string {
	if !enabled || w == "" {
		return []string{w}
	}

	runes := []rune(w)
	first, rest := string(runes[0]), string(runes[1:])
	forms := []string{
		w,
		strings.ToLower(w),
		strings.ToUpper(w),
		strings.ToUpper(first) + strings.ToLower(rest),
		strings.ToLower(first) + strings.ToUpper(rest),
	}

	out := forms[:0]
	for _, f := range forms {
		dup := false
		for _, o := range out {
			if o == f {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

// LeetVariants lazily yields every combination of keeping or substituting
// each letter of word that has look-alikes in table. The unsubstituted word
// comes first. Only the current prefix is held in memory, so callers can
// stop early without paying for the 2^n expansion.
func LeetVariants(word string, table map[rune][]string) iter.Seq[string] {
	runes := []rune(word)
	return func(yield func(string) bool) {
		var walk func(i int, prefix string) bool
		walk = func(i int, prefix string) bool {
			if i == len(runes) {
				return yield(prefix)
			}
			ch := runes[i]
			if !walk(i+1, prefix+string(ch)) {
				return false
			}
			for _, sub := range table[unicode.ToLower(ch)] {
				if !walk(i+1, prefix+sub) {
					return false
				}
			}
			return true
		}
		walk(0, "")
	}
}
