package services

import (
	"sync"
	"time"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

// OTPStore keeps live verification records keyed by contact identifier.
// Mutate must run its callback under the identifier's critical section so
// verify-then-delete is atomic: two concurrent verifies with the correct
// code must not both observe a live record. Different identifiers are
// independent.
type OTPStore interface {
	// Save stores rec for the identifier, overwriting any prior record.
	Save(identifier string, rec models.OTPRecord)
	// Delete removes the identifier's record, if any.
	Delete(identifier string)
	// Mutate calls fn with the current record (nil when absent) while
	// holding the identifier's lock. The record fn returns replaces the
	// stored one; returning nil deletes it.
	Mutate(identifier string, fn func(rec *models.OTPRecord) *models.OTPRecord)
	// DeleteExpired removes every record past its expiry and reports how
	// many were dropped.
	DeleteExpired(now time.Time) int
}

// MemoryOTPStore is the process-local baseline. It does not survive
// restarts and is not shared across instances; the OTPStore interface is
// the seam for swapping in an external atomic store.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]*models.OTPRecord
}

// NewMemoryOTPStore creates an empty in-memory OTP store.
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{records: make(map[string]*models.OTPRecord)}
}

func (s *MemoryOTPStore) Save(identifier string, rec models.OTPRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Identifier = identifier
	s.records[identifier] = &rec
}

func (s *MemoryOTPStore) Delete(identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
}

func (s *MemoryOTPStore) Mutate(identifier string, fn func(rec *models.OTPRecord) *models.OTPRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[identifier]
	next := fn(rec)
	if next == nil {
		delete(s.records, identifier)
		return
	}
	next.Identifier = identifier
	s.records[identifier] = next
}

func (s *MemoryOTPStore) DeleteExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			dropped++
		}
	}
	return dropped
}
