// Package proxy hands out a proxy endpoint for every fetch attempt.
package proxy

import (
	"log/slog"
	"sync/atomic"

	"github.com/IliaW/reddit-news-feed/internal/cache"
)

type Provider interface {
	// Next returns the endpoint for the next request; ok is false for a direct connection.
	Next() (endpoint string, ok bool)
}

// Penalizer is implemented by providers that can steer away from an endpoint after a
// blocked or failed request.
type Penalizer interface {
	Penalize(endpoint string)
}

type Direct struct{}

func (Direct) Next() (string, bool) { return "", false }

type RoundRobin struct {
	endpoints []string
	next      atomic.Uint64
	cooldown  cache.CooldownCache
	log       *slog.Logger
}

func NewRoundRobin(endpoints []string, cooldown cache.CooldownCache, log *slog.Logger) *RoundRobin {
	return &RoundRobin{
		endpoints: endpoints,
		cooldown:  cooldown,
		log:       log,
	}
}

// Next skips endpoints in cooldown. When every endpoint is cooling down it falls back
// to plain rotation rather than stalling the crawl.
func (rr *RoundRobin) Next() (string, bool) {
	if len(rr.endpoints) == 0 {
		return "", false
	}
	var first string
	for range rr.endpoints {
		endpoint := rr.endpoints[(rr.next.Add(1)-1)%uint64(len(rr.endpoints))]
		if first == "" {
			first = endpoint
		}
		if rr.cooldown == nil || !rr.cooldown.IsBlocked(endpoint) {
			return endpoint, true
		}
	}
	rr.log.Debug("all proxies are cooling down.", slog.Int("proxies", len(rr.endpoints)))
	return first, true
}

func (rr *RoundRobin) Penalize(endpoint string) {
	if rr.cooldown == nil {
		return
	}
	rr.cooldown.Block(endpoint)
	rr.log.Info("proxy put on cooldown.", slog.String("proxy", endpoint))
}
