package candidates

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrInputNotFound is returned when a required input file does not exist
var ErrInputNotFound = errors.New("input file not found")

// CommonPasswords are always tried in dictionary mode, after the wordlist
var CommonPasswords = []string{
	"password", "123456", "12345678", "qwerty", "abc123",
	"monkey", "letmein", "trustno1", "dragon", "baseball",
	"iloveyou", "master", "sunshine", "ashley", "bailey",
	"passw0rd", "shadow", "admin", "admin123", "root",
}

// LoadWordlist reads one word per line. Lines are trimmed, blank lines
// dropped and repeats removed, keeping the first occurrence.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var words []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wordlist: %w", err)
	}

	return words, nil
}

// WithCommonPasswords appends CommonPasswords to words, skipping repeats
func WithCommonPasswords(words []string) []string {
	seen := make(map[string]struct{}, len(words)+len(CommonPasswords))
	out := make([]string, 0, len(words)+len(CommonPasswords))
	for _, list := range [][]string{words, CommonPasswords} {
		for _, w := range list {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
