package candidates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCharset is returned for a charset name that is not defined
var ErrUnknownCharset = errors.New("unknown charset")

const (
	digitChars  = "0123456789"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	customPrefix = "custom:"
)

// unicodeChars covers Latin with European diacritics, Cyrillic, Greek, a
// few CJK characters and ASCII punctuation
const unicodeChars = lowerChars + upperChars + digitChars +
	"äöüßÄÖÜ" +
	"àâæçéèêëïîôùûüÿœÀÂÆÇÉÈÊËÏÎÔÙÛÜŸŒ" +
	"áàâãåéèêëíìîïñóòôõöúùûüçÁÀÂÃÅÉÈÊËÍÌÎÏÑÓÒÔÕÖÚÙÛÜÇ" +
	"àèéìíîòóùúÀÈÉÌÍÎÒÓÙÚ" +
	"åæøåäöÅÆØÅÄÖ" +
	"áðéíóúýþæöÁÐÉÍÓÚÝÞÆÖ" +
	"ąćęłńóśźżĄĆĘŁŃÓŚŹŻ" +
	"áčďéěíňóřšťúůýžÁČĎÉĚÍŇÓŘŠŤÚŮÝŽ" +
	"áéíóöőúüűÁÉÍÓÖŐÚÜŰ" +
	"ăâîșțĂÂÎȘȚ" +
	"çğıİöşüÇĞIİÖŞÜ" +
	"čćđšžČĆĐŠŽ" +
	"āčēģīķļņšūžĀČĒĢĪĶĻŅŠŪŽ" +
	"äõöüšžÄÕÖÜŠŽ" +
	"абвгдеёжзийклмнопрстуфхцчшщъыьэюя" +
	"АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ" +
	"αβγδεζηθικλμνξοπρστυφχψω" +
	"ΑΒΓΔΕΖΗΘΙΚΛΜΝΞΟΠΡΣΤΥΦΧΨΩ" +
	"密码漢字日本語한국어" +
	"!@#$%^&*()_+-=[]{}|;:,.<>?/\\`~'\""

var namedCharsets = map[string]string{
	"digits":   digitChars,
	"lower":    lowerChars,
	"upper":    upperChars,
	"symbols":  symbolChars,
	"mixed":    lowerChars + upperChars + digitChars + symbolChars,
	"lowernum": digitChars + lowerChars,
	"alnum":    digitChars + lowerChars + upperChars,
	"attack":   digitChars + lowerChars + upperChars + "!@#$_-",
	"unicode":  unicodeChars,
}

// Charset resolves a charset name, or "custom:<chars>", to its alphabet.
// Repeated characters are dropped, keeping first occurrence order, so that
// every candidate is produced exactly once.
func Charset(name string) ([]rune, error) {
	var chars string
	if custom, ok := strings.CutPrefix(name, customPrefix); ok {
		chars = custom
	} else {
		named, ok := namedCharsets[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
		}
		chars = named
	}

	alphabet := dedupeRunes(chars)
	if len(alphabet) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", ErrUnknownCharset, name)
	}
	return alphabet, nil
}

func dedupeRunes(s string) []rune {
	seen := make(map[rune]struct{}, len(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
