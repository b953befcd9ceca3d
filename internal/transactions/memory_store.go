package transactions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/finward/finward/internal/pagination"
)

// MemoryStore is a thread-safe in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record // id -> record
}

type record struct {
	tx      Transaction
	deleted bool
}

// NewMemoryStore creates an in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	m.records[tx.ID] = &record{tx: *tx}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok || r.deleted || r.tx.UserID != userID {
		return nil, ErrNotFound
	}
	cp := r.tx
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[tx.ID]
	if !ok || r.deleted || r.tx.UserID != tx.UserID {
		return ErrNotFound
	}
	tx.CreatedAt = r.tx.CreatedAt
	tx.UpdatedAt = time.Now()
	r.tx = *tx
	return nil
}

func (m *MemoryStore) SoftDelete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok || r.deleted || r.tx.UserID != userID {
		return ErrNotFound
	}
	r.deleted = true
	return nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cursor, err := pagination.Decode(filter.Cursor)
	if err != nil {
		return nil, err
	}

	var all []*Transaction
	for _, r := range m.records {
		if r.deleted || r.tx.UserID != userID {
			continue
		}
		if !matches(&r.tx, filter) {
			continue
		}
		cp := r.tx
		all = append(all, &cp)
	}

	// Newest first with ID tiebreaker, matching the cursor ordering
	sort.Slice(all, func(i, j int) bool {
		if !all[i].TransactionDate.Equal(all[j].TransactionDate) {
			return all[i].TransactionDate.After(all[j].TransactionDate)
		}
		return all[i].ID > all[j].ID
	})

	if cursor != nil {
		idx := 0
		for idx < len(all) {
			tx := all[idx]
			if tx.TransactionDate.Before(cursor.Ts) ||
				(tx.TransactionDate.Equal(cursor.Ts) && tx.ID < cursor.ID) {
				break
			}
			idx++
		}
		all = all[idx:]
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(all) > limit+1 {
		all = all[:limit+1]
	}
	return all, nil
}

func (m *MemoryStore) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Transaction
	for _, r := range m.records {
		if r.deleted || r.tx.UserID != userID {
			continue
		}
		d := r.tx.TransactionDate
		if d.Before(from) || d.After(to) {
			continue
		}
		cp := r.tx
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TransactionDate.After(result[j].TransactionDate)
	})
	return result, nil
}

func (m *MemoryStore) ApplyVerdict(ctx context.Context, id string, fraudulent bool, score float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok || r.deleted {
		return false, nil
	}
	r.tx.IsFraudFlagged = fraudulent
	r.tx.FraudRiskScore = score
	r.tx.UpdatedAt = time.Now()
	return true, nil
}

func matches(tx *Transaction, filter ListFilter) bool {
	if filter.Type != "" && tx.Type != filter.Type {
		return false
	}
	if filter.Category != "" && tx.Category != filter.Category {
		return false
	}
	if !filter.From.IsZero() && tx.TransactionDate.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && tx.TransactionDate.After(filter.To) {
		return false
	}
	if filter.FraudFlagged != nil && tx.IsFraudFlagged != *filter.FraudFlagged {
		return false
	}
	return true
}
