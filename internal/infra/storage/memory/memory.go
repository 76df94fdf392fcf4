// Package memory provides in-memory repository implementations, used
// when no database is configured and throughout the test suites.
package memory

import (
	"sync"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
)

// MemoryStorage holds all in-memory state behind one mutex, which also
// gives the conditional status updates the same per-id atomicity the
// SQL implementations get from guarded UPDATEs.
type MemoryStorage struct {
	mu            sync.Mutex
	transactions  map[string]*domain.Transaction
	merchants     map[string]*domain.Merchant
	subscriptions map[string]*domain.Subscription // keyed by subscription id
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		transactions:  make(map[string]*domain.Transaction),
		merchants:     make(map[string]*domain.Merchant),
		subscriptions: make(map[string]*domain.Subscription),
	}
}

// AddMerchant seeds a merchant (test fixture path).
func (s *MemoryStorage) AddMerchant(m *domain.Merchant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.merchants[m.ID] = &cp
}

// AddSubscription seeds a subscription (test fixture path).
func (s *MemoryStorage) AddSubscription(sub *domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subscriptions[sub.ID] = &cp
}

// BackdateTransaction rewrites a record's creation time (test fixture
// path for expiry scenarios).
func (s *MemoryStorage) BackdateTransaction(id string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.transactions[id]; ok {
		tx.CreatedAt = createdAt
	}
}

func copyTx(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	if tx.RefundInfo != nil {
		info := *tx.RefundInfo
		cp.RefundInfo = &info
	}
	return &cp
}
