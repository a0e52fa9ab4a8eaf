package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ports "trainingclub/internal/sheets"
)

// Store keeps appended rows in memory, grouped by "<year> <tab>".
type Store struct {
	mu   sync.Mutex
	rows map[string][][]any
	n    int
}

var _ ports.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[string][][]any{}}
}

// AppendRow stores the row and returns a synthetic reference.
func (s *Store) AppendRow(_ context.Context, r ports.Row) (string, error) {
	tab := strings.TrimSpace(r.Tab)
	if tab == "" {
		return "", errors.New("missing tab name")
	}
	if len(r.Values) == 0 {
		return "", errors.New("empty row")
	}
	key := fmt.Sprintf("%d %s", r.Year, tab)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key] = append(s.rows[key], append([]any(nil), r.Values...))
	s.n++
	return fmt.Sprintf("mem:%s!%d", key, len(s.rows[key])), nil
}

// Rows returns a copy of the rows appended to tab for year.
func (s *Store) Rows(tab string, year int) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.rows[fmt.Sprintf("%d %s", year, tab)]
	out := make([][]any, len(src))
	copy(out, src)
	return out
}

// Len is the total number of rows across tabs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
