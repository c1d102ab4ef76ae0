package ginserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/internal/app/commands"
	reservationapp "tablebook/internal/app/handlers/reservation"
	venueapp "tablebook/internal/app/handlers/venues"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/notify"
	appoutbox "tablebook/internal/app/outbox"
	"tablebook/internal/app/queries"
	domaincustomer "tablebook/internal/domain/customer"
	domainvenue "tablebook/internal/domain/venue"
	"tablebook/internal/infra/config"
	"tablebook/internal/infra/locks"
	"tablebook/internal/infra/obs"
	"tablebook/internal/infra/storage/memory"
)

var (
	testNow  = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	testSlot = time.Date(2026, time.September, 5, 19, 0, 0, 0, time.UTC)
)

type serverEnv struct {
	handler http.Handler
	locks   *locks.Keyed
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	venues := memory.NewVenueRepository()
	customers := memory.NewCustomerRepository()
	reservations := memory.NewReservationRepository()
	historyStore := memory.NewHistoryStore()
	outboxStore := memory.NewOutbox()
	idStore := memory.NewIdempotencyStore(time.Hour)
	venueLocks := locks.NewKeyed(50 * time.Millisecond)

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

	factory := memory.Factory{
		VenueRepo:       venues,
		CustomerRepo:    customers,
		ReservationRepo: reservations,
		HistoryRepo:     historyStore,
	}
	fixedNow := func() time.Time { return testNow }
	encoder := appoutbox.JSONEventEncoder{}
	notifier := notify.Notifier{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, reservationapp.CreateReservationCommand{}.Key(), &reservationapp.CreateReservationHandler{
		UoWFactory: factory, Locks: venueLocks, Outbox: outboxStore, Encoder: encoder, Notifier: notifier, Now: fixedNow,
	})
	commands.RegisterHandler(commandBus, reservationapp.ModifyReservationCommand{}.Key(), &reservationapp.ModifyReservationHandler{
		UoWFactory: factory, Locks: venueLocks, Outbox: outboxStore, Encoder: encoder, Notifier: notifier, Now: fixedNow,
	})
	commands.RegisterHandler(commandBus, reservationapp.CompleteReservationCommand{}.Key(), &reservationapp.CompleteReservationHandler{
		UoWFactory: factory, Outbox: outboxStore, Encoder: encoder, Now: fixedNow,
	})
	commands.RegisterHandler(commandBus, reservationapp.CancelReservationCommand{}.Key(), &reservationapp.CancelReservationHandler{
		UoWFactory: factory, Locks: venueLocks, Outbox: outboxStore, Encoder: encoder, Notifier: notifier, Now: fixedNow,
	})
	commands.RegisterHandler(commandBus, reservationapp.DeleteReservationCommand{}.Key(), &reservationapp.DeleteReservationHandler{
		UoWFactory: factory, Outbox: outboxStore, Encoder: encoder, Now: fixedNow,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, reservationapp.GetReservationQuery{}.Key(), &reservationapp.GetReservationHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, reservationapp.ListReservationsQuery{}.Key(), &reservationapp.ListReservationsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, reservationapp.GetHistoryQuery{}.Key(), &reservationapp.GetHistoryHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, venueapp.GetVenueQuery{}.Key(), &venueapp.GetVenueHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, venueapp.ListVenuesQuery{}.Key(), &venueapp.ListVenuesHandler{UoWFactory: factory})

	commandChain := middleware.ChainCommands(
		commandBus,
		middleware.Validation(),
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryChain := middleware.ChainQueries(queryBus, middleware.QueryValidation())

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Reservations: ReservationHandler{Commands: commandChain, Queries: queryChain},
		Venues:       VenueHandler{Queries: queryChain},
	})
	return &serverEnv{handler: server.Handler, locks: venueLocks}
}

func (e *serverEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func createBody(guests int, when time.Time) string {
	return fmt.Sprintf(`{"customer_id":"cust-1","venue_id":"venue-1","when":%q,"guests":%d}`,
		when.Format(time.RFC3339), guests)
}

func TestCreateAndFetchReservation(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testSlot), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "CONFIRMED", created.Status)
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/reservations/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/reservations", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateValidationAndRuleFailures(t *testing.T) {
	env := newServerEnv(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/reservations", `{"venue_id":"venue-1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lead time violation names the rule", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testNow.Add(time.Hour)), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Rule  string `json:"rule"`
			Value string `json:"value"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "lead_time", body.Rule)
		assert.NotEmpty(t, body.Value)
	})

	t.Run("capacity violation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(20, testSlot), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = env.do(t, http.MethodPost, "/api/v1/reservations", createBody(1, testSlot.Add(time.Hour)), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Rule string `json:"rule"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "capacity", body.Rule)
	})

	t.Run("unknown venue is 404", func(t *testing.T) {
		body := strings.Replace(createBody(2, testSlot), "venue-1", "venue-404", 1)
		rec := env.do(t, http.MethodPost, "/api/v1/reservations", body, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLifecycleOverHTTP(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testSlot), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/v1/reservations/" + created.ID

	rec = env.do(t, http.MethodDelete, base, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "deleting a confirmed reservation must be refused")

	rec = env.do(t, http.MethodPost, base+"/complete", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "completing an upcoming reservation must be refused")

	rec = env.do(t, http.MethodPost, base+"/cancel", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trail struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	require.Len(t, trail.Items, 3)
	assert.Equal(t, "CONFIRMED", trail.Items[0].Status)
	assert.Equal(t, "CANCELLED", trail.Items[1].Status)
	assert.Equal(t, "DELETED", trail.Items[2].Status)
}

func TestIdempotencyKeyReplays(t *testing.T) {
	env := newServerEnv(t)
	headers := map[string]string{"Idempotency-Key": "book-once"}

	first := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testSlot), headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testSlot), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := env.do(t, http.MethodGet, "/api/v1/reservations", "", nil)
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1, "replayed request must not book twice")
}

func TestBusyVenueReturns503(t *testing.T) {
	env := newServerEnv(t)

	release, err := env.locks.Acquire(context.Background(), "venue-1")
	require.NoError(t, err)
	defer release()

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(4, testSlot), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVenueEndpoints(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/venues", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []struct {
			ID       string `json:"id"`
			Capacity int    `json:"capacity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 20, list.Items[0].Capacity)

	rec = env.do(t, http.MethodGet, "/api/v1/venues/venue-1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/venues/venue-404", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
