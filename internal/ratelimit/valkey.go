package ratelimit

import (
	"context"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

const keyPrefix = "ratelimit:"

// ValkeyStore counts requests in a Valkey (Redis-compatible) server. The
// INCR is the atomicity point; the first increment of a window attaches the
// window TTL, and the remaining TTL is the reset horizon.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the counter store at addr.
func NewValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connecting to valkey at %s: %w", addr, err)
	}
	return &ValkeyStore{client: client}, nil
}

// Incr implements Store.
func (s *ValkeyStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := keyPrefix + key

	count, err := s.client.Do(ctx, s.client.B().Incr().Key(k).Build()).AsInt64()
	if err != nil {
		return 0, time.Time{}, err
	}

	if count == 1 {
		if err := s.client.Do(ctx, s.client.B().Pexpire().Key(k).Milliseconds(window.Milliseconds()).Build()).Error(); err != nil {
			return 0, time.Time{}, err
		}
	}

	pttl, err := s.client.Do(ctx, s.client.B().Pttl().Key(k).Build()).AsInt64()
	if err != nil {
		return 0, time.Time{}, err
	}
	if pttl < 0 {
		// Counter exists without a TTL, e.g. a crash between INCR and
		// PEXPIRE. Reattach the window so the key cannot live forever.
		if err := s.client.Do(ctx, s.client.B().Pexpire().Key(k).Milliseconds(window.Milliseconds()).Build()).Error(); err != nil {
			return 0, time.Time{}, err
		}
		pttl = window.Milliseconds()
	}

	return count, time.Now().Add(time.Duration(pttl) * time.Millisecond), nil
}

// Close releases the underlying client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}
