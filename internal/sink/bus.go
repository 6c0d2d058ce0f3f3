package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// DefaultSubject is where extracted records are published.
const DefaultSubject = "jobs.extracted"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each record as JSON on Subject.
type NATSSink struct {
	Pub     publisher
	Subject string
	conn    *nats.Conn
}

// DialNATS connects with unlimited reconnects.
func DialNATS(url string, timeout time.Duration) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{Pub: conn, Subject: DefaultSubject, conn: conn}, nil
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Persist(_ context.Context, p posting.JobPosting) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	subject := s.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	if err := s.Pub.Publish(subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSink keeps the latest record per URL under
// jobextract:posting:<url key>.
type RedisSink struct {
	Client setter
	TTL    time.Duration
	client *redis.Client
}

// NewRedisSink builds a sink over a new client. No connection is made until
// the first write.
func NewRedisSink(addr, password string, db int, ttl time.Duration) *RedisSink {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisSink{Client: c, TTL: ttl, client: c}
}

// RedisKey is the key a record for url is stored under.
func RedisKey(url string) string { return "jobextract:posting:" + posting.Key(url) }

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Persist(ctx context.Context, p posting.JobPosting) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, RedisKey(p.URL), b, s.TTL).Err()
}

func (s *RedisSink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
