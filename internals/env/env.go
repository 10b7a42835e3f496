// Package env bundles the collaborators every engine service is built from.
package env

import (
	"context"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/metrics"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/pkg/conf"
	"github.com/rs/zerolog/log"
)

type Env struct {
	Store   store.Store
	Bus     *feed.Bus
	Metrics *metrics.Registry
	Rules   conf.Engine
	// Now is the engine clock. Nil means time.Now in UTC.
	Now func() time.Time
}

func New(st store.Store, bus *feed.Bus, m *metrics.Registry, rules conf.Engine) *Env {
	return &Env{Store: st, Bus: bus, Metrics: m, Rules: rules}
}

func (e *Env) Clock() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// Run executes fn as one unit of work named op. The events fn returns are
// published only after the unit of work committed.
func (e *Env) Run(ctx context.Context, op string, fn func(tx store.Tx) ([]feed.Event, error)) error {
	start := time.Now()
	var events []feed.Event
	err := e.Store.Tx(ctx, func(tx store.Tx) error {
		var err error
		events, err = fn(tx)
		return err
	})
	e.Metrics.Observe(op, start, err)
	if err != nil {
		if kind := errs.KindOf(err); kind != "" {
			log.Debug().Str("op", op).Str("kind", string(kind)).Msg(err.Error())
		} else {
			log.Error().Err(err).Str("op", op).Msg("roster operation failed")
		}
		return err
	}

	for _, evt := range events {
		log.Info().
			Str("op", op).
			Str("event", string(evt.Kind)).
			Strs("teams", evt.TeamIDs).
			Str("player", evt.PlayerID).
			Str("ref", evt.RefID).
			Msg("roster transaction committed")
		e.Bus.Publish(evt)
	}
	return nil
}
