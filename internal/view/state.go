package view

import (
	"sync"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
)

type monthTotals struct {
	generation uint64
	totals     entity.CategoryTotals
}

// AppState is the state shared between views. It replaces a global mutable
// context: every view receives the same *AppState and goes through its methods.
//
// Per-month totals and the current month are written with a generation taken
// from NextGeneration. A write carrying an older generation than the one
// already stored is rejected.
type AppState struct {
	mu sync.RWMutex

	generation uint64
	loading    int
	modalOwner string
	role       entity.Role

	byMonth      map[string]monthTotals
	currentMonth string
	currentGen   uint64
}

// NewAppState creates an empty state with the given role
func NewAppState(role entity.Role) *AppState {
	return &AppState{
		role:    role,
		byMonth: make(map[string]monthTotals),
	}
}

// NextGeneration returns a fresh, strictly increasing generation
func (s *AppState) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// OpenLoading raises the loading indicator. Calls nest.
func (s *AppState) OpenLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

// CloseLoading releases one OpenLoading
func (s *AppState) CloseLoading() {
	s.mu.Lock()
	if s.loading > 0 {
		s.loading--
	}
	s.mu.Unlock()
}

// Loading reports whether any view holds the loading indicator
func (s *AppState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// OpenModal opens the shared modal for owner. It fails if another owner holds it.
func (s *AppState) OpenModal(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modalOwner != "" && s.modalOwner != owner {
		return false
	}
	s.modalOwner = owner
	return true
}

// CloseModal closes the modal if owner holds it
func (s *AppState) CloseModal(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modalOwner != owner {
		return false
	}
	s.modalOwner = ""
	return true
}

// Modal returns the current modal owner, empty when closed
func (s *AppState) Modal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modalOwner
}

func (s *AppState) Role() entity.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *AppState) SetRole(role entity.Role) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
}

// UpdateInvoiceDataByMonth stores the category totals of month
func (s *AppState) UpdateInvoiceDataByMonth(month string, totals entity.CategoryTotals, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byMonth[month]; ok && generation < cur.generation {
		return false
	}
	s.byMonth[month] = monthTotals{generation: generation, totals: totals.Clone()}
	return true
}

// InvoiceDataByMonth returns a copy of the stored totals of month
func (s *AppState) InvoiceDataByMonth(month string) (entity.CategoryTotals, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.byMonth[month]
	if !ok {
		return nil, false
	}
	return cur.totals.Clone(), true
}

func (s *AppState) SetCurrentMonth(month string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation < s.currentGen {
		return false
	}
	s.currentMonth = month
	s.currentGen = generation
	return true
}

func (s *AppState) CurrentMonth() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMonth
}
