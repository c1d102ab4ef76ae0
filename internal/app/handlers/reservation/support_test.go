package reservation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/internal/app/notify"
	appoutbox "tablebook/internal/app/outbox"
	"tablebook/internal/app/uow"
	"tablebook/internal/infra/locks"
)

type sessionKey struct{}

// sessionBoundUnit mimics a unit whose repositories only join the
// transaction through a context the unit itself derives.
type sessionBoundUnit struct {
	uow.UnitOfWork
	injected bool
}

func (u *sessionBoundUnit) InjectContext(ctx context.Context) context.Context {
	u.injected = true
	return context.WithValue(ctx, sessionKey{}, "session")
}

func (u *sessionBoundUnit) Commit(ctx context.Context) error   { return nil }
func (u *sessionBoundUnit) Rollback(ctx context.Context) error { return nil }

type sessionBoundFactory struct {
	unit *sessionBoundUnit
}

func (f sessionBoundFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestManagedUnitBindsSessionContext(t *testing.T) {
	unit := &sessionBoundUnit{}
	got, execCtx, managed, err := beginManagedUnit(context.Background(), sessionBoundFactory{unit: unit})
	require.NoError(t, err)
	assert.True(t, managed)
	assert.Equal(t, uow.UnitOfWork(unit), got)

	assert.True(t, unit.injected, "the unit must get to bind its session to the context")
	assert.Equal(t, "session", execCtx.Value(sessionKey{}))

	fromCtx, ok := uow.FromContext(execCtx)
	require.True(t, ok)
	assert.Equal(t, uow.UnitOfWork(unit), fromCtx)
}

func TestReadOnlyUnitBindsSessionContext(t *testing.T) {
	unit := &sessionBoundUnit{}
	_, execCtx, cleanup, err := beginReadOnlyUnit(context.Background(), sessionBoundFactory{unit: unit})
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer cleanup()

	assert.True(t, unit.injected)
	assert.Equal(t, "session", execCtx.Value(sessionKey{}))
}

// releaseTrackingLocker flags the moment its release func runs, so a sink
// can observe whether the venue was already unlocked when the message left.
type releaseTrackingLocker struct {
	inner    *locks.Keyed
	released atomic.Bool
}

func (l *releaseTrackingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	release, err := l.inner.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	return func() {
		l.released.Store(true)
		release()
	}, nil
}

type lockCheckSink struct {
	locker *releaseTrackingLocker
	freed  chan bool
}

func (s *lockCheckSink) SendText(ctx context.Context, recipientPhone, message string) error {
	s.freed <- s.locker.released.Load()
	return nil
}

func TestNotificationSentAfterLockRelease(t *testing.T) {
	env := newTestEnv(t)
	locker := &releaseTrackingLocker{inner: env.locks}
	sink := &lockCheckSink{locker: locker, freed: make(chan bool, 1)}

	handler := &CreateReservationHandler{
		UoWFactory: env.factory,
		Locks:      locker,
		Outbox:     env.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Notifier:   notify.Notifier{Sink: sink},
		Now:        func() time.Time { return testNow },
	}
	_, err := handler.Handle(context.Background(), CreateReservationCommand{
		CommandID:  "res-1",
		CustomerID: "cust-1",
		VenueID:    "venue-1",
		When:       testSlot,
		Guests:     4,
	})
	require.NoError(t, err)

	select {
	case freed := <-sink.freed:
		assert.True(t, freed, "notification must go out after the venue lock is released")
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}
