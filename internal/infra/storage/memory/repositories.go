package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// VenueRepository keeps venues in memory. Venue data is reference data to
// the engine, so a map guarded by a RWMutex is all it takes.
type VenueRepository struct {
	mu    sync.RWMutex
	items map[domainvenue.VenueID]*domainvenue.Venue
}

func NewVenueRepository() *VenueRepository {
	return &VenueRepository{items: make(map[domainvenue.VenueID]*domainvenue.Venue)}
}

func (r *VenueRepository) ByID(ctx context.Context, id domainvenue.VenueID) (*domainvenue.Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ven, ok := r.items[id]
	if !ok {
		return nil, domainvenue.ErrVenueNotFound
	}
	return ven, nil
}

func (r *VenueRepository) List(ctx context.Context) ([]*domainvenue.Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainvenue.Venue, 0, len(r.items))
	for _, ven := range r.items {
		out = append(out, ven)
	}
	return out, nil
}

func (r *VenueRepository) Save(ctx context.Context, v *domainvenue.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[v.ID] = v
	return nil
}

// CustomerRepository stores customers in memory.
type CustomerRepository struct {
	mu    sync.RWMutex
	items map[domaincustomer.CustomerID]*domaincustomer.Customer
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{items: make(map[domaincustomer.CustomerID]*domaincustomer.Customer)}
}

func (r *CustomerRepository) ByID(ctx context.Context, id domaincustomer.CustomerID) (*domaincustomer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cust, ok := r.items[id]
	if !ok {
		return nil, domaincustomer.ErrCustomerNotFound
	}
	return cust, nil
}

func (r *CustomerRepository) Save(ctx context.Context, c *domaincustomer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	return nil
}

// ReservationRepository stores reservations in memory.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[domainreservation.ReservationID]*domainreservation.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[domainreservation.ReservationID]*domainreservation.Reservation)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, domainreservation.ErrReservationNotFound
	}
	return res, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.Version++
	r.items[res.ID] = res
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id domainreservation.ReservationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainreservation.ErrReservationNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ReservationRepository) List(ctx context.Context) ([]*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainreservation.Reservation, 0, len(r.items))
	for _, res := range r.items {
		out = append(out, res)
	}
	return out, nil
}

// ConfirmedGuestsBetween sums confirmed guest counts with exclusive bounds,
// skipping the excluded reservation if given.
func (r *ReservationRepository) ConfirmedGuestsBetween(ctx context.Context, venueID domainvenue.VenueID, from, to time.Time, exclude domainreservation.ReservationID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := 0
	for _, res := range r.items {
		if res.VenueID != venueID || res.Status != domainreservation.StatusConfirmed {
			continue
		}
		if exclude != "" && res.ID == exclude {
			continue
		}
		if res.When.After(from) && res.When.Before(to) {
			sum += res.Guests
		}
	}
	return sum, nil
}

// HistoryStore is the in-memory audit trail. A monotonically increasing
// sequence preserves causal order when two records share a timestamp.
type HistoryStore struct {
	mu      sync.RWMutex
	nextSeq int64
	records []domainhistory.Record
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(ctx context.Context, rec domainhistory.Record) (domainhistory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	rec.Seq = s.nextSeq
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *HistoryStore) ByReservation(ctx context.Context, id domainreservation.ReservationID) ([]domainhistory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainhistory.Record, 0)
	for _, rec := range s.records {
		if rec.ReservationID == id {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

var (
	_ domainvenue.Repository       = (*VenueRepository)(nil)
	_ domaincustomer.Repository    = (*CustomerRepository)(nil)
	_ domainreservation.Repository = (*ReservationRepository)(nil)
	_ domainhistory.Store          = (*HistoryStore)(nil)
)
