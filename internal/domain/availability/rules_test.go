package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/internal/domain/reservation"
	"tablebook/internal/domain/venue"
)

type stubSums struct {
	booked  int
	err     error
	gotFrom time.Time
	gotTo   time.Time
	gotExcl reservation.ReservationID
}

func (s *stubSums) ConfirmedGuestsBetween(ctx context.Context, venueID venue.VenueID, from, to time.Time, exclude reservation.ReservationID) (int, error) {
	s.gotFrom = from
	s.gotTo = to
	s.gotExcl = exclude
	return s.booked, s.err
}

func saturdayVenue(capacity int) *venue.Venue {
	ven, err := venue.NewVenue(venue.CreateParams{
		ID:       "venue-1",
		Name:     "Trattoria",
		Capacity: capacity,
		Windows: []venue.BusinessWindow{
			{Weekday: time.Saturday, Open: venue.ClockTime{Hour: 12}, Close: venue.ClockTime{Hour: 23}},
		},
	})
	if err != nil {
		panic(err)
	}
	return ven
}

// Tuesday morning; the following Saturday 19:00 is a valid slot.
var (
	testNow  = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	testSlot = time.Date(2026, time.September, 5, 19, 0, 0, 0, time.UTC)
)

func TestLeadTimeRule(t *testing.T) {
	rule := LeadTime(MinLeadTime)
	req := Request{Now: testNow}

	t.Run("exactly 24h ahead is rejected", func(t *testing.T) {
		req.When = testNow.Add(24 * time.Hour)
		err := rule(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnreservable)
		var v *Violation
		require.ErrorAs(t, err, &v)
		assert.Equal(t, RuleLeadTime, v.Rule)
	})

	t.Run("just past 24h is admitted", func(t *testing.T) {
		req.When = testNow.Add(24*time.Hour + time.Minute)
		assert.NoError(t, rule(context.Background(), req))
	})

	t.Run("past time is rejected", func(t *testing.T) {
		req.When = testNow.Add(-time.Hour)
		assert.ErrorIs(t, rule(context.Background(), req), ErrUnreservable)
	})
}

func TestOpenHoursRule(t *testing.T) {
	ven := saturdayVenue(20)
	rule := OpenHours()

	cases := []struct {
		name string
		when time.Time
		ok   bool
	}{
		{"opening boundary", time.Date(2026, time.September, 5, 12, 0, 0, 0, time.UTC), true},
		{"closing boundary", time.Date(2026, time.September, 5, 23, 0, 0, 0, time.UTC), true},
		{"one minute early", time.Date(2026, time.September, 5, 11, 59, 0, 0, time.UTC), false},
		{"one minute late", time.Date(2026, time.September, 5, 23, 1, 0, 0, time.UTC), false},
		{"right weekday wrong hours", time.Date(2026, time.September, 5, 3, 0, 0, 0, time.UTC), false},
		{"closed weekday same hours", time.Date(2026, time.September, 8, 19, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule(context.Background(), Request{Venue: ven, When: tc.when, Now: testNow})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var v *Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, RuleOpenHours, v.Rule)
		})
	}
}

func TestCapacityRule(t *testing.T) {
	ven := saturdayVenue(20)

	t.Run("window bounds are the requested time plus minus two hours", func(t *testing.T) {
		sums := &stubSums{}
		rule := Capacity(sums, OverlapWindow)
		require.NoError(t, rule(context.Background(), Request{Venue: ven, When: testSlot, Guests: 2, Now: testNow}))
		assert.Equal(t, testSlot.Add(-2*time.Hour), sums.gotFrom)
		assert.Equal(t, testSlot.Add(2*time.Hour), sums.gotTo)
	})

	t.Run("exactly at capacity is admitted", func(t *testing.T) {
		sums := &stubSums{booked: 16}
		rule := Capacity(sums, OverlapWindow)
		assert.NoError(t, rule(context.Background(), Request{Venue: ven, When: testSlot, Guests: 4, Now: testNow}))
	})

	t.Run("one over capacity is rejected", func(t *testing.T) {
		sums := &stubSums{booked: 16}
		rule := Capacity(sums, OverlapWindow)
		err := rule(context.Background(), Request{Venue: ven, When: testSlot, Guests: 5, Now: testNow})
		require.Error(t, err)
		var v *Violation
		require.ErrorAs(t, err, &v)
		assert.Equal(t, RuleCapacity, v.Rule)
		assert.Equal(t, "5", v.Value)
	})

	t.Run("store errors pass through without the unreservable class", func(t *testing.T) {
		boom := errors.New("boom")
		sums := &stubSums{err: boom}
		rule := Capacity(sums, OverlapWindow)
		err := rule(context.Background(), Request{Venue: ven, When: testSlot, Guests: 1, Now: testNow})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrUnreservable)
	})

	t.Run("exclude travels to the store", func(t *testing.T) {
		sums := &stubSums{}
		rule := Capacity(sums, OverlapWindow)
		req := Request{Venue: ven, When: testSlot, Guests: 1, Now: testNow, Exclude: "res-7"}
		require.NoError(t, rule(context.Background(), req))
		assert.Equal(t, reservation.ReservationID("res-7"), sums.gotExcl)
	})
}

func TestEvaluator(t *testing.T) {
	ven := saturdayVenue(20)

	t.Run("nil venue", func(t *testing.T) {
		eval := NewEvaluator(&stubSums{})
		err := eval.Evaluate(context.Background(), Request{When: testSlot, Guests: 2, Now: testNow})
		assert.ErrorIs(t, err, venue.ErrVenueNotFound)
	})

	t.Run("non positive guests", func(t *testing.T) {
		eval := NewEvaluator(&stubSums{})
		err := eval.Evaluate(context.Background(), Request{Venue: ven, When: testSlot, Guests: 0, Now: testNow})
		assert.ErrorIs(t, err, reservation.ErrInvalidGuests)
	})

	t.Run("lead time fires before capacity", func(t *testing.T) {
		sums := &stubSums{booked: 100}
		eval := NewEvaluator(sums)
		err := eval.Evaluate(context.Background(), Request{Venue: ven, When: testNow.Add(time.Hour), Guests: 2, Now: testNow})
		var v *Violation
		require.ErrorAs(t, err, &v)
		assert.Equal(t, RuleLeadTime, v.Rule)
	})

	t.Run("full chain admits a valid slot", func(t *testing.T) {
		eval := NewEvaluator(&stubSums{booked: 10})
		err := eval.Evaluate(context.Background(), Request{Venue: ven, When: testSlot, Guests: 10, Now: testNow})
		assert.NoError(t, err)
	})

	t.Run("extra rules run after the standard chain", func(t *testing.T) {
		blocked := &Violation{Rule: "blackout", Value: testSlot.Format(time.RFC3339), Detail: "private event"}
		eval := NewEvaluator(&stubSums{}, func(ctx context.Context, req Request) error { return blocked })
		err := eval.Evaluate(context.Background(), Request{Venue: ven, When: testSlot, Guests: 2, Now: testNow})
		assert.ErrorIs(t, err, ErrUnreservable)
	})
}
