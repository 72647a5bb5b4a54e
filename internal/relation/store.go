// Package relation loads flat fact files emitted by the nullability checker
// into read-only, hash-indexed record stores.
//
// A Store keeps its records in an arena slice in file order and a secondary
// index from a discriminator hash (usually the hashed owning class of the
// record's target) to the positions of the records in that bucket. Lookups
// scan a single bucket and apply a full predicate, so a query by target
// identity costs O(bucket) rather than O(n).
//
// Stores are built once per pass and never mutated afterwards, which makes
// them safe for concurrent readers without locking.
package relation

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Hint selects the bucket a query scans.
type Hint uint64

// HashOf returns the bucket hint for a discriminator key.
func HashOf(key string) Hint {
	return Hint(xxhash.Sum64String(key))
}

// Schema describes one record shape: how many tab-separated columns a line
// carries, how to parse them, and which field discriminates the bucket.
type Schema[T any] struct {
	Name    string
	Columns int
	Parse   func(values []string) (T, error)
	Key     func(record T) string
}

// Store is an immutable collection of records with a hash-bucket index.
type Store[T any] struct {
	name    string
	records []T
	buckets map[Hint][]int
}

// Empty returns a store with no facts, used when an optional fact file is
// absent.
func Empty[T any](schema Schema[T]) *Store[T] {
	return &Store[T]{name: schema.Name, buckets: make(map[Hint][]int)}
}

// Load parses the fact file at path. The first line is a header and is
// skipped, as are blank lines.
func Load[T any](path string, schema Schema[T]) (*Store[T], error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	s := Empty(schema)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, "\t")
		if len(values) != schema.Columns {
			return nil, &MalformedRecordError{Path: path, Line: lineNo, Want: schema.Columns, Got: len(values)}
		}
		record, err := schema.Parse(values)
		if err != nil {
			return nil, &MalformedRecordError{Path: path, Line: lineNo, Want: schema.Columns, Got: len(values), Err: err}
		}
		s.add(record, schema.Key(record))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s, nil
}

// FromRecords builds a store from records already in memory, in order.
func FromRecords[T any](schema Schema[T], records []T) *Store[T] {
	s := Empty(schema)
	for _, r := range records {
		s.add(r, schema.Key(r))
	}
	return s
}

func (s *Store[T]) add(record T, key string) {
	h := HashOf(key)
	s.buckets[h] = append(s.buckets[h], len(s.records))
	s.records = append(s.records, record)
}

// Find returns every record of the hinted bucket accepted by pred, in
// insertion order.
func (s *Store[T]) Find(pred func(T) bool, hint Hint) []T {
	idx := s.buckets[hint]
	var out []T
	for _, i := range idx {
		if pred(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}

func (s *Store[T]) Name() string { return s.name }

func (s *Store[T]) Len() int { return len(s.records) }

// All returns a copy of all records in file order.
func (s *Store[T]) All() []T {
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}
