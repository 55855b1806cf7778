package cache

import (
	"errors"
	"fmt"
	"os"
	"time"

	"sjsage522/jobfeedworker/logger"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheLease implements Lease with memcache's atomic add
type MemcacheLease struct {
	client *memcache.Client
	holder string
	log    *logger.Logger
}

var _ Lease = (*MemcacheLease)(nil)

// NewMemcacheLease creates a memcache-backed lease
func NewMemcacheLease(serverAddr string, log *logger.Logger) *MemcacheLease {
	if log == nil {
		log = logger.Nop()
	}
	host, _ := os.Hostname()
	return &MemcacheLease{
		client: memcache.New(serverAddr),
		holder: fmt.Sprintf("%s:%d", host, os.Getpid()),
		log:    log,
	}
}

// Acquire adds key with a ttl; the add fails if another holder stored it first
func (m *MemcacheLease) Acquire(key string, ttl time.Duration) (bool, error) {
	err := m.client.Add(&memcache.Item{
		Key:        key,
		Value:      []byte(m.holder),
		Expiration: int32(ttl.Seconds()),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		m.log.Info().Str("key", key).Str("holder", m.holder).Msg("Lease held by another instance")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.log.Debug().Str("key", key).Str("holder", m.holder).Dur("ttl", ttl).Msg("Lease acquired")
	return true, nil
}

// Release deletes key if this process still holds it.
//
// The holder check and the delete are two round trips, not one atomic
// operation. If the lease expires between the Get and the Delete and another
// instance acquires it in that window, the Delete removes the new holder's
// lease. memcache has no compare-and-delete, so the window is only narrowed
// by keeping the TTL above the longest cycle (config.Validate requires it to
// exceed the render timeout).
func (m *MemcacheLease) Release(key string) error {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return err
	}
	if string(item.Value) != m.holder {
		m.log.Warn().
			Str("key", key).
			Str("holder", m.holder).
			Str("current", string(item.Value)).
			Msg("Lease expired and was taken over before release")
		return nil
	}
	err = m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
