package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/domain/reservation"
	"tablebook/internal/domain/venue"
)

const (
	// MinLeadTime is the guaranteed preparation window a venue gets before
	// any booking: requests for tomorrow or sooner are rejected.
	MinLeadTime = 24 * time.Hour
	// OverlapWindow bounds how long a party occupies seating. Only
	// confirmed bookings within +-OverlapWindow of the requested time
	// compete for capacity.
	OverlapWindow = 2 * time.Hour
)

const (
	RuleLeadTime  = "lead_time"
	RuleOpenHours = "open_hours"
	RuleCapacity  = "capacity"
)

// ErrUnreservable is the class every rule violation wraps, so callers can
// errors.Is a failure without caring which rule fired.
var ErrUnreservable = errors.New("availability: slot not reservable")

// Violation names the failed rule and the offending value so clients get
// actionable feedback instead of a bare rejection.
type Violation struct {
	Rule   string
	Value  string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("availability: %s: %s (%s)", v.Rule, v.Detail, v.Value)
}

func (v *Violation) Unwrap() error { return ErrUnreservable }

// Request carries everything the rules inspect. Now is explicit so tests
// can pin the clock.
type Request struct {
	Venue   *venue.Venue
	When    time.Time
	Guests  int
	Now     time.Time
	Exclude reservation.ReservationID
}

// Rule is a single admission predicate. It returns nil to pass or a
// *Violation to reject. New rules (blackout dates, VIP overrides) slot into
// the chain without touching existing ones.
type Rule func(ctx context.Context, req Request) error

// GuestSumQuery aggregates confirmed guest counts inside an exclusive time
// window, skipping at most one reservation. reservation.Repository
// implementations satisfy it.
type GuestSumQuery interface {
	ConfirmedGuestsBetween(ctx context.Context, venueID venue.VenueID, from, to time.Time, exclude reservation.ReservationID) (int, error)
}

// LeadTime rejects requests at or before now+min.
func LeadTime(min time.Duration) Rule {
	return func(ctx context.Context, req Request) error {
		if req.When.After(req.Now.Add(min)) {
			return nil
		}
		return &Violation{
			Rule:   RuleLeadTime,
			Value:  req.When.Format(time.RFC3339),
			Detail: fmt.Sprintf("reservations need more than %s notice", min),
		}
	}
}

// OpenHours rejects times outside every business window of the weekday.
func OpenHours() Rule {
	return func(ctx context.Context, req Request) error {
		if req.Venue.OpenAt(req.When) {
			return nil
		}
		return &Violation{
			Rule:   RuleOpenHours,
			Value:  req.When.Format(time.RFC3339),
			Detail: "venue is closed at the requested time",
		}
	}
}

// Capacity rejects when confirmed guests within (When-window, When+window)
// plus the new party would exceed the venue's seating. Exactly at capacity
// is still admitted.
func Capacity(sums GuestSumQuery, window time.Duration) Rule {
	return func(ctx context.Context, req Request) error {
		booked, err := sums.ConfirmedGuestsBetween(ctx, req.Venue.ID, req.When.Add(-window), req.When.Add(window), req.Exclude)
		if err != nil {
			return fmt.Errorf("availability: capacity lookup: %w", err)
		}
		if booked+req.Guests <= req.Venue.Capacity {
			return nil
		}
		return &Violation{
			Rule:   RuleCapacity,
			Value:  fmt.Sprintf("%d", req.Guests),
			Detail: fmt.Sprintf("venue is fully booked around %s", req.When.Format(time.RFC3339)),
		}
	}
}

// Evaluator runs an ordered rule chain and reports the first violation.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds the standard chain (lead time, open hours, capacity)
// followed by any extra rules.
func NewEvaluator(sums GuestSumQuery, extra ...Rule) Evaluator {
	rules := []Rule{
		LeadTime(MinLeadTime),
		OpenHours(),
		Capacity(sums, OverlapWindow),
	}
	return Evaluator{rules: append(rules, extra...)}
}

// Evaluate returns nil when every rule admits the request.
func (e Evaluator) Evaluate(ctx context.Context, req Request) error {
	if req.Venue == nil {
		return venue.ErrVenueNotFound
	}
	if req.Guests <= 0 {
		return reservation.ErrInvalidGuests
	}
	for _, rule := range e.rules {
		if err := rule(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
