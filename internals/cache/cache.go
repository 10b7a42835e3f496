// Package cache keeps team cap summaries in redis in front of the store.
// Entries are dropped whenever a committed transaction touches the team, and
// each team's generation counter is bumped so late writes go unserved.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/roster"
	"github.com/libertypfc/Hockeybot-sub000/pkg/kvstore"
	"github.com/rs/zerolog/log"
)

type CacheService struct {
	KV     kvstore.KVStore
	Roster *roster.RosterService
	TTL    time.Duration
}

func New(kv kvstore.KVStore, rs *roster.RosterService) *CacheService {
	return &CacheService{
		KV:     kv,
		Roster: rs,
		TTL:    DefaultTTL,
	}
}

// CapSummary serves teamID's summary from redis, loading and storing it on a
// miss. Entries carry the team's generation as read before the load, so an
// entry written after a later invalidation is never served. Redis failures
// fall back to the store.
func (c *CacheService) CapSummary(ctx context.Context, teamID string) (roster.CapSummary, error) {
	key := capSummaryKey(teamID)
	gen, err := c.generation(teamID)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cap summary cache unavailable")
		return c.Roster.CapSummary(ctx, teamID)
	}

	raw, err := c.KV.Get(key)
	switch {
	case err == nil:
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Str("key", key).Msg("dropping undecodable cap summary")
		} else if e.Gen == gen {
			return e.Summary, nil
		}
	case !kvstore.IsMiss(err):
		log.Warn().Err(err).Str("key", key).Msg("cap summary cache unavailable")
	}

	s, err := c.Roster.CapSummary(ctx, teamID)
	if err != nil {
		return s, err
	}
	payload, err := json.Marshal(entry{Gen: gen, Summary: s})
	if err != nil {
		return s, nil
	}
	if err := c.KV.Set(key, string(payload), c.TTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("could not cache cap summary")
	}
	return s, nil
}

// generation reads teamID's invalidation counter. A team never invalidated
// is at zero.
func (c *CacheService) generation(teamID string) (int64, error) {
	raw, err := c.KV.Get(generationKey(teamID))
	if kvstore.IsMiss(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Invalidate bumps each team's generation before dropping its entry.
func (c *CacheService) Invalidate(teamIDs ...string) {
	if len(teamIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		if _, err := c.KV.Incr(generationKey(id)); err != nil {
			log.Warn().Err(err).Str("team", id).Msg("could not bump cap summary generation")
		}
		keys = append(keys, capSummaryKey(id))
	}
	if err := c.KV.Delete(keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("could not invalidate cap summaries")
	}
}

// Attach invalidates on every event published to bus until the returned
// function is called.
func (c *CacheService) Attach(bus *feed.Bus) func() {
	return bus.Subscribe(func(evt feed.Event) {
		c.Invalidate(evt.TeamIDs...)
	})
}
