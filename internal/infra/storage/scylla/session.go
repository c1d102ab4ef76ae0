package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/gocql/gocql"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Options configure the cluster connection. Keyspace and tables are created
// on first connect so a fresh cluster works out of the box.
type Options struct {
	Hosts             []string
	Keyspace          string
	Timeout           time.Duration
	ReplicationFactor int
}

// NewSession ensures schema exists and returns a connected Scylla session.
func NewSession(opts Options, logger *slog.Logger) (*gocql.Session, error) {
	if !keyspacePattern.MatchString(opts.Keyspace) {
		return nil, fmt.Errorf("invalid keyspace name: %s", opts.Keyspace)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ReplicationFactor <= 0 {
		opts.ReplicationFactor = 1
	}

	baseCluster := gocql.NewCluster(opts.Hosts...)
	baseCluster.Timeout = opts.Timeout
	baseCluster.Consistency = gocql.Quorum

	baseSession, err := baseCluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to scylla: %w", err)
	}
	defer baseSession.Close()

	if err := ensureKeyspace(context.Background(), baseSession, opts); err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Timeout = opts.Timeout
	cluster.Keyspace = opts.Keyspace
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", opts.Keyspace, err)
	}
	if err := ensureTables(context.Background(), session, opts); err != nil {
		session.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("scylla connected", "hosts", opts.Hosts, "keyspace", opts.Keyspace)
	}
	return session, nil
}

func ensureKeyspace(ctx context.Context, session *gocql.Session, opts Options) error {
	cql := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
		opts.Keyspace, opts.ReplicationFactor,
	)
	if err := session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}
	return nil
}

func ensureTables(ctx context.Context, session *gocql.Session, opts Options) error {
	history := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.audit_history (
	reservation_id text,
	entry_id timeuuid,
	record_id text,
	customer_id text,
	venue_id text,
	slot_at timestamp,
	guests int,
	status text,
	recorded_at timestamp,
	PRIMARY KEY (reservation_id, entry_id)
) WITH CLUSTERING ORDER BY (entry_id ASC);`, opts.Keyspace)
	if err := session.Query(history).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create audit_history table: %w", err)
	}
	return nil
}
