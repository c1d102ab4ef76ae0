package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tablebook/internal/app/commands"
	reservationapp "tablebook/internal/app/handlers/reservation"
	venueapp "tablebook/internal/app/handlers/venues"
	"tablebook/internal/app/middleware"
	"tablebook/internal/app/notify"
	appoutbox "tablebook/internal/app/outbox"
	"tablebook/internal/app/queries"
	"tablebook/internal/app/uow"
	domaincustomer "tablebook/internal/domain/customer"
	domainvenue "tablebook/internal/domain/venue"
	"tablebook/internal/infra/broker/kafka"
	"tablebook/internal/infra/config"
	mongodb "tablebook/internal/infra/db/mongo"
	ginserver "tablebook/internal/infra/http/gin"
	"tablebook/internal/infra/locks"
	infranotify "tablebook/internal/infra/notify"
	"tablebook/internal/infra/obs"
	infraoutbox "tablebook/internal/infra/outbox"
	"tablebook/internal/infra/storage/memory"
	"tablebook/internal/infra/storage/scylla"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if err := app.loadVenueFixtures(ctx, cfg.VenueFixtures, logger); err != nil {
		logger.Warn("venue fixtures load failed", "error", err, "path", cfg.VenueFixtures)
	}
	if err := app.loadCustomerFixtures(ctx, cfg.CustomerFixtures, logger); err != nil {
		logger.Warn("customer fixtures load failed", "error", err, "path", cfg.CustomerFixtures)
	}

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	outboxWorker *infraoutbox.Worker
	ready        func() error
	close        func()

	venues    domainvenue.Repository
	customers domaincustomer.Repository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{
		ready: func() error { return nil },
		close: func() {},
	}

	var (
		uowFactory  uow.UoWFactory
		outboxStore appoutbox.Outbox
		producer    *kafka.Producer
	)

	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("kafka producer: %w", err)
		}
		producer = p
	}

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		venueRepo := mongodb.NewVenueRepository(client.DB)
		customerRepo := mongodb.NewCustomerRepository(client.DB)
		reservationRepo := mongodb.NewReservationRepository(client.DB)
		historyRepo := mongodb.NewHistoryRepository(client.DB)
		store := infraoutbox.NewStore(client.DB)
		uowFactory = mongodb.Factory{
			DB:              client.DB,
			VenueRepo:       venueRepo,
			CustomerRepo:    customerRepo,
			ReservationRepo: reservationRepo,
			HistoryRepo:     historyRepo,
		}
		outboxStore = store
		app.venues = venueRepo
		app.customers = customerRepo
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		if producer != nil {
			app.outboxWorker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		}
	default:
		venueRepo := memory.NewVenueRepository()
		customerRepo := memory.NewCustomerRepository()
		reservationRepo := memory.NewReservationRepository()
		historyRepo := memory.NewHistoryStore()
		factory := memory.Factory{
			VenueRepo:       venueRepo,
			CustomerRepo:    customerRepo,
			ReservationRepo: reservationRepo,
			HistoryRepo:     historyRepo,
		}
		if cfg.HistoryBackend == "scylla" {
			session, err := scylla.NewSession(scylla.Options{
				Hosts:    cfg.ScyllaHosts,
				Keyspace: cfg.ScyllaKeyspace,
			}, logger)
			if err != nil {
				return application{}, fmt.Errorf("scylla connect: %w", err)
			}
			factory.HistoryRepo = scylla.NewHistoryStore(session)
			prevClose := app.close
			app.close = func() {
				session.Close()
				prevClose()
			}
		}
		uowFactory = factory
		outboxStore = memory.NewOutbox()
		app.venues = venueRepo
		app.customers = customerRepo
	}

	var sink notify.NotificationSink = infranotify.LogSink{Logger: logger}
	if cfg.NotifyMode == "kafka" && producer != nil {
		sink = infranotify.SMSPublisher{Producer: producer, Topic: cfg.SMSTopic}
	}
	notifier := notify.Notifier{Sink: sink, Logger: logger}

	idStore := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	venueLocks := locks.NewKeyed(cfg.LockWait)
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, reservationapp.CreateReservationCommand{}.Key(), &reservationapp.CreateReservationHandler{
		UoWFactory: uowFactory,
		Locks:      venueLocks,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Notifier:   notifier,
	})
	commands.RegisterHandler(commandBus, reservationapp.ModifyReservationCommand{}.Key(), &reservationapp.ModifyReservationHandler{
		UoWFactory: uowFactory,
		Locks:      venueLocks,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Notifier:   notifier,
	})
	commands.RegisterHandler(commandBus, reservationapp.CompleteReservationCommand{}.Key(), &reservationapp.CompleteReservationHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, reservationapp.CancelReservationCommand{}.Key(), &reservationapp.CancelReservationHandler{
		UoWFactory: uowFactory,
		Locks:      venueLocks,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Notifier:   notifier,
	})
	commands.RegisterHandler(commandBus, reservationapp.DeleteReservationCommand{}.Key(), &reservationapp.DeleteReservationHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, reservationapp.GetReservationQuery{}.Key(), &reservationapp.GetReservationHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, reservationapp.ListReservationsQuery{}.Key(), &reservationapp.ListReservationsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, reservationapp.GetHistoryQuery{}.Key(), &reservationapp.GetHistoryHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, venueapp.GetVenueQuery{}.Key(), &venueapp.GetVenueHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, venueapp.ListVenuesQuery{}.Key(), &venueapp.ListVenuesHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Validation(),
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(),
	)

	app.handlers = ginserver.Handlers{
		Reservations: ginserver.ReservationHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
		Venues: ginserver.VenueHandler{
			Queries: queryBusWithMiddleware,
		},
	}
	if producer != nil {
		prevClose := app.close
		app.close = func() {
			_ = producer.Close()
			prevClose()
		}
	}
	return app, nil
}

func (a application) loadVenueFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("venue fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []venueFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		windows := make([]domainvenue.BusinessWindow, 0, len(fx.Windows))
		for _, w := range fx.Windows {
			weekday, err := parseWeekday(w.Weekday)
			if err != nil {
				logger.Error("fixture window invalid", "venue_id", fx.ID, "error", err)
				continue
			}
			open, err := parseClock(w.Open)
			if err != nil {
				logger.Error("fixture window invalid", "venue_id", fx.ID, "error", err)
				continue
			}
			cls, err := parseClock(w.Close)
			if err != nil {
				logger.Error("fixture window invalid", "venue_id", fx.ID, "error", err)
				continue
			}
			windows = append(windows, domainvenue.BusinessWindow{Weekday: weekday, Open: open, Close: cls})
		}
		ven, err := domainvenue.NewVenue(domainvenue.CreateParams{
			ID:       domainvenue.VenueID(fx.ID),
			Name:     fx.Name,
			Capacity: fx.Capacity,
			Windows:  windows,
		})
		if err != nil {
			logger.Error("fixture invalid", "venue_id", fx.ID, "error", err)
			continue
		}
		if err := a.venues.Save(ctx, ven); err != nil {
			logger.Error("cannot store fixture venue", "venue_id", fx.ID, "error", err)
			continue
		}
		logger.Info("venue fixture imported", "venue_id", ven.ID)
	}
	return nil
}

func (a application) loadCustomerFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("customer fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []customerFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		cust := &domaincustomer.Customer{
			ID:    domaincustomer.CustomerID(fx.ID),
			Name:  fx.Name,
			Phone: fx.Phone,
		}
		if err := a.customers.Save(ctx, cust); err != nil {
			logger.Error("cannot store fixture customer", "customer_id", fx.ID, "error", err)
			continue
		}
		logger.Info("customer fixture imported", "customer_id", cust.ID)
	}
	return nil
}

type venueFixture struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Windows  []fixtureWindow `json:"windows"`
}

type fixtureWindow struct {
	Weekday string `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type customerFixture struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func parseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}

func parseClock(raw string) (domainvenue.ClockTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d:%d", &hour, &minute); err != nil {
		return domainvenue.ClockTime{}, fmt.Errorf("invalid clock time %q: %w", raw, err)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return domainvenue.ClockTime{}, fmt.Errorf("clock time %q out of range", raw)
	}
	return domainvenue.ClockTime{Hour: hour, Minute: minute}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
