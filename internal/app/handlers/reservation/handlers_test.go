package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/internal/app/notify"
	appoutbox "tablebook/internal/app/outbox"
	domainavailability "tablebook/internal/domain/availability"
	domaincustomer "tablebook/internal/domain/customer"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
	"tablebook/internal/infra/locks"
	"tablebook/internal/infra/storage/memory"
)

// Tuesday morning; the Saturday slot four days out clears the lead-time rule.
var (
	testNow  = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	testSlot = time.Date(2026, time.September, 5, 19, 0, 0, 0, time.UTC)
)

type recordingSink struct {
	mu       sync.Mutex
	messages []string
	signal   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{signal: make(chan struct{}, 16)}
}

func (s *recordingSink) SendText(ctx context.Context, recipientPhone, message string) error {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
	s.signal <- struct{}{}
	return nil
}

func (s *recordingSink) waitForSend(t *testing.T) string {
	t.Helper()
	select {
	case <-s.signal:
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type testEnv struct {
	reservations *memory.ReservationRepository
	history      *memory.HistoryStore
	factory      memory.Factory
	outbox       *memory.Outbox
	sink         *recordingSink
	notifier     notify.Notifier
	locks        *locks.Keyed
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	venues := memory.NewVenueRepository()
	customers := memory.NewCustomerRepository()
	reservations := memory.NewReservationRepository()
	historyStore := memory.NewHistoryStore()

	ven, err := domainvenue.NewVenue(domainvenue.CreateParams{
		ID: "venue-1", Name: "Trattoria", Capacity: 20,
		Windows: []domainvenue.BusinessWindow{
			{Weekday: time.Saturday, Open: domainvenue.ClockTime{Hour: 12}, Close: domainvenue.ClockTime{Hour: 23}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, venues.Save(context.Background(), ven))
	require.NoError(t, customers.Save(context.Background(), &domaincustomer.Customer{
		ID: "cust-1", Name: "Ada", Phone: "+15550100001",
	}))

	sink := newRecordingSink()
	return &testEnv{
		reservations: reservations,
		history:      historyStore,
		factory: memory.Factory{
			VenueRepo:       venues,
			CustomerRepo:    customers,
			ReservationRepo: reservations,
			HistoryRepo:     historyStore,
		},
		outbox:   memory.NewOutbox(),
		sink:     sink,
		notifier: notify.Notifier{Sink: sink},
		locks:    locks.NewKeyed(time.Second),
	}
}

func (e *testEnv) createHandler() *CreateReservationHandler {
	return &CreateReservationHandler{
		UoWFactory: e.factory,
		Locks:      e.locks,
		Outbox:     e.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Notifier:   e.notifier,
		Now:        func() time.Time { return testNow },
	}
}

func (e *testEnv) create(t *testing.T, id string, when time.Time, guests int) {
	t.Helper()
	_, err := e.createHandler().Handle(context.Background(), CreateReservationCommand{
		CommandID:  id,
		CustomerID: "cust-1",
		VenueID:    "venue-1",
		When:       when,
		Guests:     guests,
	})
	require.NoError(t, err)
	e.sink.waitForSend(t)
}

func TestCreateReservation(t *testing.T) {
	env := newTestEnv(t)

	view, err := env.createHandler().Handle(context.Background(), CreateReservationCommand{
		CommandID:  "res-1",
		CustomerID: "cust-1",
		VenueID:    "venue-1",
		When:       testSlot,
		Guests:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", view.Status)
	assert.Equal(t, 4, view.Guests)

	recs, err := env.history.ByReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domainreservation.StatusConfirmed, recs[0].Status)

	require.Len(t, env.outbox.Records(), 1)
	assert.Equal(t, "reservation.confirmed", env.outbox.Records()[0].Name)

	msg := env.sink.waitForSend(t)
	assert.Equal(t, "Your reservation on Saturday, 5 September 2026 at 19:00 for 4 persons is CONFIRMED", msg)
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.createHandler().Handle(context.Background(), CreateReservationCommand{
		CustomerID: "cust-1", VenueID: "venue-404", When: testSlot, Guests: 2,
	})
	assert.ErrorIs(t, err, domainvenue.ErrVenueNotFound)

	_, err = env.createHandler().Handle(context.Background(), CreateReservationCommand{
		CustomerID: "cust-404", VenueID: "venue-1", When: testSlot, Guests: 2,
	})
	assert.ErrorIs(t, err, domaincustomer.ErrCustomerNotFound)

	assert.Equal(t, 0, env.sink.count())
}

func TestCreateEnforcesCapacityAcrossOverlap(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-full", testSlot, 20)

	// One hour later is inside the overlap window of the full booking.
	_, err := env.createHandler().Handle(context.Background(), CreateReservationCommand{
		CustomerID: "cust-1", VenueID: "venue-1",
		When: testSlot.Add(time.Hour), Guests: 1,
	})
	require.Error(t, err)
	var v *domainavailability.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, domainavailability.RuleCapacity, v.Rule)

	// Outside the window the venue is free again.
	_, err = env.createHandler().Handle(context.Background(), CreateReservationCommand{
		CommandID:  "res-late",
		CustomerID: "cust-1", VenueID: "venue-1",
		When: testSlot.Add(3 * time.Hour), Guests: 20,
	})
	require.NoError(t, err)
	env.sink.waitForSend(t)
}

func TestModifyReservation(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-1", testSlot, 12)

	handler := &ModifyReservationHandler{
		UoWFactory: env.factory,
		Locks:      env.locks,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Notifier:   env.notifier,
		Now:        func() time.Time { return testNow },
	}

	// Growing to full capacity works because the booking's own guests are
	// excluded from the sum.
	view, err := handler.Handle(context.Background(), ModifyReservationCommand{
		ReservationID: "res-1", When: testSlot, Guests: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, view.Guests)
	assert.Equal(t, "CONFIRMED", view.Status)

	msg := env.sink.waitForSend(t)
	assert.Contains(t, msg, "for 20 persons is CONFIRMED")

	recs, err := env.history.ByReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domainreservation.StatusConfirmed, recs[1].Status)

	_, err = handler.Handle(context.Background(), ModifyReservationCommand{
		ReservationID: "res-404", When: testSlot, Guests: 2,
	})
	assert.ErrorIs(t, err, domainreservation.ErrReservationNotFound)
}

func TestCancelReservation(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-1", testSlot, 4)

	handler := &CancelReservationHandler{
		UoWFactory: env.factory,
		Locks:      env.locks,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Notifier:   env.notifier,
		Now:        func() time.Time { return testNow },
	}

	view, err := handler.Handle(context.Background(), CancelReservationCommand{ReservationID: "res-1"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", view.Status)

	msg := env.sink.waitForSend(t)
	assert.Contains(t, msg, "is CANCELLED")

	recs, err := env.history.ByReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domainreservation.StatusConfirmed, recs[0].Status)
	assert.Equal(t, domainreservation.StatusCancelled, recs[1].Status)

	// Cancelled seats free up for new bookings.
	env.create(t, "res-2", testSlot, 20)

	_, err = handler.Handle(context.Background(), CancelReservationCommand{ReservationID: "res-1"})
	assert.ErrorIs(t, err, domainreservation.ErrInvalidState)
}

func TestCompleteReservation(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-1", testSlot, 4)

	early := &CompleteReservationHandler{
		UoWFactory: env.factory,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Now:        func() time.Time { return testNow },
	}
	_, err := early.Handle(context.Background(), CompleteReservationCommand{ReservationID: "res-1"})
	assert.ErrorIs(t, err, domainreservation.ErrStillUpcoming)

	sendsBefore := env.sink.count()
	late := &CompleteReservationHandler{
		UoWFactory: env.factory,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Now:        func() time.Time { return testSlot.Add(2 * time.Hour) },
	}
	view, err := late.Handle(context.Background(), CompleteReservationCommand{ReservationID: "res-1"})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", view.Status)

	recs, err := env.history.ByReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domainreservation.StatusCompleted, recs[1].Status)

	// Completion is silent.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, sendsBefore, env.sink.count())
}

func TestDeleteReservation(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-1", testSlot, 4)

	handler := &DeleteReservationHandler{
		UoWFactory: env.factory,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Now:        func() time.Time { return testNow },
	}

	t.Run("confirmed is refused without side effects", func(t *testing.T) {
		_, err := handler.Handle(context.Background(), DeleteReservationCommand{ReservationID: "res-1"})
		assert.ErrorIs(t, err, domainreservation.ErrInvalidState)

		res, err := env.reservations.ByID(context.Background(), "res-1")
		require.NoError(t, err)
		assert.Equal(t, domainreservation.StatusConfirmed, res.Status)

		recs, err := env.history.ByReservation(context.Background(), "res-1")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("cancelled is removed, trail survives", func(t *testing.T) {
		cancel := &CancelReservationHandler{
			UoWFactory: env.factory,
			Locks:      env.locks,
			Outbox:     env.outbox,
			Encoder:    appoutbox.JSONEventEncoder{},
			Notifier:   env.notifier,
			Now:        func() time.Time { return testNow },
		}
		_, err := cancel.Handle(context.Background(), CancelReservationCommand{ReservationID: "res-1"})
		require.NoError(t, err)
		env.sink.waitForSend(t)

		result, err := handler.Handle(context.Background(), DeleteReservationCommand{ReservationID: "res-1"})
		require.NoError(t, err)
		assert.Equal(t, "res-1", result.ID)

		_, err = env.reservations.ByID(context.Background(), "res-1")
		assert.ErrorIs(t, err, domainreservation.ErrReservationNotFound)

		recs, err := env.history.ByReservation(context.Background(), "res-1")
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, domainreservation.StatusConfirmed, recs[0].Status)
		assert.Equal(t, domainreservation.StatusCancelled, recs[1].Status)
		assert.Equal(t, domainreservation.StatusDeleted, recs[2].Status)
	})
}

func TestHistoryQueryOutlivesReservation(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-1", testSlot, 4)

	cancel := &CancelReservationHandler{
		UoWFactory: env.factory, Locks: env.locks,
		Outbox: env.outbox, Encoder: appoutbox.JSONEventEncoder{},
		Notifier: env.notifier, Now: func() time.Time { return testNow },
	}
	_, err := cancel.Handle(context.Background(), CancelReservationCommand{ReservationID: "res-1"})
	require.NoError(t, err)
	env.sink.waitForSend(t)

	del := &DeleteReservationHandler{
		UoWFactory: env.factory, Outbox: env.outbox,
		Encoder: appoutbox.JSONEventEncoder{}, Now: func() time.Time { return testNow },
	}
	_, err = del.Handle(context.Background(), DeleteReservationCommand{ReservationID: "res-1"})
	require.NoError(t, err)

	get := &GetReservationHandler{UoWFactory: env.factory}
	_, err = get.Handle(context.Background(), GetReservationQuery{ReservationID: "res-1"})
	assert.ErrorIs(t, err, domainreservation.ErrReservationNotFound)

	hist := &GetHistoryHandler{UoWFactory: env.factory}
	trail, err := hist.Handle(context.Background(), GetHistoryQuery{ReservationID: "res-1"})
	require.NoError(t, err)
	assert.Len(t, trail.Items, 3)
}

func TestListReservationsSorted(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "res-b", testSlot.Add(3*time.Hour), 2)
	env.create(t, "res-a", testSlot, 2)

	list := &ListReservationsHandler{UoWFactory: env.factory}
	out, err := list.Handle(context.Background(), ListReservationsQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "res-a", out.Items[0].ID)
	assert.Equal(t, "res-b", out.Items[1].ID)
}

func TestConcurrentCreatesRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = handler.Handle(context.Background(), CreateReservationCommand{
				CustomerID: "cust-1", VenueID: "venue-1",
				When: testSlot, Guests: 15,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domainavailability.ErrUnreservable)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of the competing bookings must win")
}
