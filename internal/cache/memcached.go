package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedCooldown shares blocked keys between instances that use the same proxy pool.
type MemcachedCooldown struct {
	client *memcache.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewMemcachedCooldown(servers string, ttl time.Duration, log *slog.Logger) (*MemcachedCooldown, error) {
	log.Info("connecting to memcached...")
	ss := new(memcache.ServerList)
	if err := ss.SetServers(strings.Split(servers, ",")...); err != nil {
		return nil, fmt.Errorf("failed to set memcached servers: %w", err)
	}
	c := &MemcachedCooldown{
		client: memcache.NewFromSelector(ss),
		ttl:    ttl,
		log:    log,
	}
	if err := c.client.Ping(); err != nil {
		return nil, fmt.Errorf("connection to the memcached is failed: %w", err)
	}
	log.Info("connected to memcached!")

	return c, nil
}

func (mc *MemcachedCooldown) Block(key string) {
	item := &memcache.Item{
		Key:        cooldownKey(key),
		Value:      []byte{1},
		Expiration: int32(mc.ttl.Seconds()),
	}
	if err := mc.client.Set(item); err != nil {
		mc.log.Warn("failed to block key in memcached.", slog.String("err", err.Error()))
	}
}

func (mc *MemcachedCooldown) IsBlocked(key string) bool {
	_, err := mc.client.Get(cooldownKey(key))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			mc.log.Warn("failed to read key from memcached.", slog.String("err", err.Error()))
		}
		return false
	}
	return true
}

func (mc *MemcachedCooldown) Close() {
	mc.log.Info("closing memcached connection.")
	if err := mc.client.Close(); err != nil {
		mc.log.Error("failed to close memcached connection.", slog.String("err", err.Error()))
	}
}

func cooldownKey(key string) string {
	return fmt.Sprintf("%s-proxy-cooldown", hashKey(key))
}
