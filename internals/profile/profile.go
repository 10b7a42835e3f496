package profile

import (
	"context"
	"errors"

	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type ProfileService struct {
	env *env.Env
}

func New(e *env.Env) *ProfileService {
	return &ProfileService{env: e}
}

// GetProfile returns the player's open contract (pending or active) and, for
// a waived player, the running waiver.
func (ps *ProfileService) GetProfile(ctx context.Context, playerID string) (Profile, error) {
	var prof Profile
	err := ps.env.Store.View(ctx, func(tx store.Tx) error {
		p, err := tx.Player(playerID)
		if err != nil {
			return err
		}
		prof.Player = p

		c, err := tx.FindOpenContract(p.ID)
		switch {
		case err == nil:
			prof.Contract = &c
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}

		if p.Status == store.OnWaivers {
			w, err := tx.ActiveWaiverForPlayer(p.ID)
			switch {
			case err == nil:
				prof.Waiver = &w
			case !errors.Is(err, errs.ErrNotFound):
				return err
			}
		}

		prof.History, err = tx.StatusHistory(p.ID)
		return err
	})
	return prof, err
}

func (ps *ProfileService) GetProfileByExternalID(ctx context.Context, externalID string) (Profile, error) {
	var id string
	err := ps.env.Store.View(ctx, func(tx store.Tx) error {
		p, err := tx.PlayerByExternalID(externalID)
		id = p.ID
		return err
	})
	if err != nil {
		return Profile{}, err
	}
	return ps.GetProfile(ctx, id)
}
