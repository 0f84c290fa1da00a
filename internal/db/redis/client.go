// Package redis backs the db contracts with Redis Stack (RediSearch vector index) via rueidis.
package redis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vitrine/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config describes the connection. Zero values pick defaults.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	ClientName  string        // CLIENT SETNAME, default "vitrine"
	DialTimeout time.Duration // default 5s
}

// Store is a rueidis client speaking RESP2, the reply layout parseHits expects.
type Store struct {
	client rueidis.Client
}

// NewStore connects lazily; call WaitForReady to block until Redis answers.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = "vitrine"
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		Dialer:       net.Dialer{Timeout: dial},
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Key: strings.Join(cfg.Addrs, ","), Err: err}
	}
	return &Store{client: client}, nil
}

// Ping round-trips a PING.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connections.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings with a backoff doubling from 50ms up to 1s until Redis
// answers or timeout passes.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for delay := 50 * time.Millisecond; ; delay = min(2*delay, time.Second) {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(delay):
		}
	}
}

// serverErrorMentions reports whether err is a Redis error reply whose text contains
// any of the fragments, ignoring case. RediSearch wording differs across versions.
func serverErrorMentions(err error, fragments ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, f := range fragments {
		if strings.Contains(msg, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// missingIndex matches "Unknown index name" (Redis Stack 7) and "no such index" (Redis 8).
func missingIndex(err error) bool {
	return serverErrorMentions(err, "unknown index name", "no such index")
}
