package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// CooldownCache remembers keys that must not be used until their TTL expires.
type CooldownCache interface {
	Block(string)
	IsBlocked(string) bool
	Close()
}

type LocalCooldown struct {
	cache *goCache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewLocalCooldown(ttl time.Duration, log *slog.Logger) *LocalCooldown {
	return &LocalCooldown{
		cache: goCache.New(ttl, 2*ttl),
		ttl:   ttl,
		log:   log,
	}
}

func (lc *LocalCooldown) Block(key string) {
	lc.cache.Set(hashKey(key), struct{}{}, lc.ttl)
	lc.log.Debug("key blocked.", slog.Duration("ttl", lc.ttl))
}

func (lc *LocalCooldown) IsBlocked(key string) bool {
	_, ok := lc.cache.Get(hashKey(key))
	return ok
}

func (lc *LocalCooldown) Close() {
	lc.cache.Flush()
}

func hashKey(key string) string {
	hash := sha256.New()
	hash.Write([]byte(key))
	return hex.EncodeToString(hash.Sum(nil))
}
