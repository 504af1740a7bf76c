package rainbow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"sort"
)

// ErrTableNotFound is returned when no usable table exists at the path
var ErrTableNotFound = errors.New("rainbow table not found")

// Entry is the plaintext behind one digest
type Entry struct {
	Password  string `json:"password"`
	Algorithm string `json:"algorithm,omitempty"`
}

// Table maps hex digests to their plaintext
type Table struct {
	entries map[string]Entry
	order   []string // digests in insertion order
}

// NewTable returns an empty table
func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Build hashes every word under every algorithm, algorithm by algorithm.
// When two inputs share a digest the first one is kept.
func Build(words iter.Seq[string], algos []string) (*Table, error) {
	for _, a := range algos {
		if _, ok := algorithms[a]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
		}
	}

	// Materialize once so every algorithm sees the same words
	var list []string
	for w := range words {
		list = append(list, w)
	}

	t := NewTable()
	for _, a := range algos {
		for _, w := range list {
			digest, err := Digest(a, w)
			if err != nil {
				return nil, err
			}
			t.add(digest, Entry{Password: w, Algorithm: a})
		}
	}
	return t, nil
}

func (t *Table) add(digest string, e Entry) bool {
	if _, exists := t.entries[digest]; exists {
		return false
	}
	t.entries[digest] = e
	t.order = append(t.order, digest)
	return true
}

// Len returns the number of digests
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup returns the plaintext for a hex digest
func (t *Table) Lookup(digest string) (Entry, bool) {
	e, ok := t.entries[digest]
	return e, ok
}

// Passwords returns the distinct plaintexts in table order
func (t *Table) Passwords() []string {
	seen := make(map[string]struct{}, len(t.order))
	out := make([]string, 0, len(t.order))
	for _, d := range t.order {
		p := t.entries[d].Password
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MarshalJSON writes the digest map with keys in insertion order
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.entries[d])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts both the plain digest→password form and the
// digest→{password, algorithm} form. A JSON object carries no order, so
// digests are sorted to keep Passwords stable across loads.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	digests := make([]string, 0, len(raw))
	for d := range raw {
		digests = append(digests, d)
	}
	sort.Strings(digests)

	fresh := NewTable()
	for _, d := range digests {
		var e Entry
		var plain string
		if err := json.Unmarshal(raw[d], &plain); err == nil {
			e.Password = plain
		} else if err := json.Unmarshal(raw[d], &e); err != nil {
			return fmt.Errorf("invalid entry for %s: %w", d, err)
		}
		if e.Password == "" {
			continue
		}
		fresh.add(d, e)
	}

	*t = *fresh
	return nil
}

// Save writes the table as indented JSON
func (t *Table) Save(path string) error {
	compact, err := t.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode rainbow table: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("failed to encode rainbow table: %w", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write rainbow table: %w", err)
	}
	return nil
}

// Load reads a table saved by Save or by the older plain format. A missing
// or corrupt file yields ErrTableNotFound; corruption is logged.
func Load(path string, logger *slog.Logger) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("failed to read rainbow table: %w", err)
	}

	t := NewTable()
	if err := json.Unmarshal(data, t); err != nil {
		logger.Error("rainbow table is corrupt", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
	}

	logger.Info("rainbow table loaded", slog.String("path", path), slog.Int("entries", t.Len()))
	return t, nil
}
