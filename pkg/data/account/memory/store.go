package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/auction-house-server/pkg/data/account"
)

type store struct {
	mu      sync.Mutex
	records map[string]*account.Record
	last    uint64
}

// New returns a new in memory account.Store
func New() account.Store {
	return &store{
		records: make(map[string]*account.Record),
	}
}

// Get implements account.Store.Get
func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.records[address]; ok {
		return item.Clone(), nil
	}
	return nil, account.ErrAccountNotFound
}

// GetBatch implements account.Store.GetBatch
func (s *store) GetBatch(_ context.Context, addresses ...string) (map[string]*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]*account.Record)
	for _, address := range addresses {
		if item, ok := s.records[address]; ok {
			res[address] = item.Clone()
		}
	}
	return res, nil
}

// SaveBatch implements account.Store.SaveBatch
func (s *store) SaveBatch(_ context.Context, records ...*account.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every version before applying anything
	seen := make(map[string]struct{})
	for _, record := range records {
		if _, ok := seen[record.Address]; ok {
			return account.ErrStaleAccountState
		}
		seen[record.Address] = struct{}{}

		var current uint64
		if item, ok := s.records[record.Address]; ok {
			current = item.Version
		}
		if current != record.Version {
			return account.ErrStaleAccountState
		}
	}

	now := time.Now()
	for _, record := range records {
		if record.IsDeletion() {
			delete(s.records, record.Address)
			record.Version = 0
			record.Id = 0
			record.LastUpdatedAt = now
			continue
		}

		item, ok := s.records[record.Address]
		if !ok {
			s.last++
			item = &account.Record{Id: s.last}
		}

		record.Id = item.Id
		record.Version++
		record.LastUpdatedAt = now

		s.records[record.Address] = record.Clone()
	}

	return nil
}

// CountByOwner implements account.Store.CountByOwner
func (s *store) CountByOwner(_ context.Context, owner string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if item.Owner == owner {
			count++
		}
	}
	return count, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*account.Record)
	s.last = 0
}
