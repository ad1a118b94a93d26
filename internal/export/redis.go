package export

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/status"
)

// DefaultRedisKey is the hash the variables are written to.
const DefaultRedisKey = "heatmon:variables"

// RedisOptions configures a RedisExporter.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL expires the hash when the daemon stops exporting. Zero keeps it.
	TTL    time.Duration
	Logger *logrus.Entry
}

// RedisExporter writes variables into a single Redis hash.
type RedisExporter struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *logrus.Entry
}

// NewRedisExporter creates an exporter. It does not connect until the first
// Export or Ping.
func NewRedisExporter(opts RedisOptions) (*RedisExporter, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis exporter: address required")
	}
	key := opts.Key
	if key == "" {
		key = DefaultRedisKey
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &RedisExporter{
		client: client,
		key:    key,
		ttl:    opts.TTL,
		log:    log.WithField("component", "redis"),
	}, nil
}

// Ping checks the server is reachable.
func (e *RedisExporter) Ping(ctx context.Context) error {
	if err := e.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", e.client.Options().Addr, err)
	}
	return nil
}

// Export writes every variable in one MULTI/EXEC so readers never see a
// half-updated hash.
func (e *RedisExporter) Export(ctx context.Context, snap status.Snapshot) error {
	pipe := e.client.TxPipeline()
	pipe.HSet(ctx, e.key, Fields(snap))
	if e.ttl > 0 {
		pipe.Expire(ctx, e.key, e.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to export variables to %s: %w", e.key, err)
	}
	e.log.WithField("polls", int32(snap.Polls)).Debug("exported variables")
	return nil
}

// Key returns the hash key written to.
func (e *RedisExporter) Key() string {
	return e.key
}

// Close closes the client.
func (e *RedisExporter) Close() error {
	return e.client.Close()
}
