// Package memory holds the expense report in process, for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"troupe/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Payment
}

func New() *Store {
	return &Store{}
}

// Append stores the payment and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, p core.Payment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, p)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Rows returns a copy of the report rows written so far.
func (s *Store) Rows() []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Payment(nil), s.items...)
}
