package scylla

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	domaincustomer "tablebook/internal/domain/customer"
	domainhistory "tablebook/internal/domain/history"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
)

// HistoryStore keeps the audit trail in Scylla, partitioned per reservation.
// A timeuuid clustering key preserves insertion order when two transitions
// land on the same timestamp.
type HistoryStore struct {
	session *gocql.Session
}

func NewHistoryStore(session *gocql.Session) *HistoryStore {
	return &HistoryStore{session: session}
}

func (s *HistoryStore) Append(ctx context.Context, rec domainhistory.Record) (domainhistory.Record, error) {
	if s.session == nil {
		return domainhistory.Record{}, errors.New("scylla: session not initialized")
	}
	entryID := gocql.TimeUUID()
	if rec.ID == "" {
		rec.ID = entryID.String()
	}
	rec.Seq = entryID.Time().UnixNano()
	if err := s.session.
		Query(`INSERT INTO audit_history (reservation_id, entry_id, record_id, customer_id, venue_id, slot_at, guests, status, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(rec.ReservationID), entryID, rec.ID, string(rec.CustomerID), string(rec.VenueID),
			rec.When.UTC(), rec.Guests, string(rec.Status), rec.RecordedAt.UTC()).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Exec(); err != nil {
		return domainhistory.Record{}, err
	}
	return rec, nil
}

func (s *HistoryStore) ByReservation(ctx context.Context, id domainreservation.ReservationID) ([]domainhistory.Record, error) {
	if s.session == nil {
		return nil, errors.New("scylla: session not initialized")
	}
	iter := s.session.
		Query(`SELECT entry_id, record_id, customer_id, venue_id, slot_at, guests, status, recorded_at FROM audit_history WHERE reservation_id = ?`, string(id)).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()

	var (
		entryID    gocql.UUID
		recordID   string
		customerID string
		venueID    string
		slotAt     time.Time
		guests     int
		status     string
		recordedAt time.Time
	)
	out := make([]domainhistory.Record, 0)
	for iter.Scan(&entryID, &recordID, &customerID, &venueID, &slotAt, &guests, &status, &recordedAt) {
		out = append(out, domainhistory.Record{
			ID:            recordID,
			ReservationID: id,
			CustomerID:    domaincustomer.CustomerID(customerID),
			VenueID:       domainvenue.VenueID(venueID),
			When:          slotAt.UTC(),
			Guests:        guests,
			Status:        domainreservation.Status(status),
			RecordedAt:    recordedAt.UTC(),
			Seq:           entryID.Time().UnixNano(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ domainhistory.Store = (*HistoryStore)(nil)
