// Package league sets up the teams and players the roster engine works on.
package league

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
)

type LeagueService struct {
	env *env.Env
}

func New(e *env.Env) *LeagueService {
	return &LeagueService{env: e}
}

// CreateTeam adds a team with no contracts, so its available cap starts at
// the ceiling.
func (l *LeagueService) CreateTeam(ctx context.Context, actor auth.Actor, body CreateTeamRequestBody) (store.Team, error) {
	if !actor.Admin {
		return store.Team{}, errs.New(errs.Unauthorized, "only league administrators create teams")
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return store.Team{}, errs.New(errs.InvalidArgument, "team name is required")
	}
	if body.CapCeiling <= 0 || body.CapFloor < 0 || body.CapFloor > body.CapCeiling {
		return store.Team{}, errs.New(errs.InvalidArgument, "cap floor %d and ceiling %d are inconsistent", body.CapFloor, body.CapCeiling)
	}

	team := store.Team{
		ID:           uuid.NewString(),
		Name:         body.Name,
		CapCeiling:   body.CapCeiling,
		CapFloor:     body.CapFloor,
		AvailableCap: body.CapCeiling,
	}
	err := l.env.Run(ctx, "create_team", func(tx store.Tx) ([]feed.Event, error) {
		teams, err := tx.Teams()
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			if strings.EqualFold(t.Name, team.Name) {
				return nil, errs.New(errs.InvalidArgument, "team %q already exists", t.Name)
			}
		}
		if err := tx.SaveTeam(&team); err != nil {
			return nil, err
		}
		return []feed.Event{{Kind: feed.TeamCreated, TeamIDs: []string{team.ID}, Actor: actor.ID, At: l.env.Clock()}}, nil
	})
	return team, err
}

// RegisterPlayer adds a free agent identified by its external (chat) id.
func (l *LeagueService) RegisterPlayer(ctx context.Context, actor auth.Actor, body RegisterPlayerRequestBody) (store.Player, error) {
	if !actor.Admin && actor.ID != body.ExternalID {
		return store.Player{}, errs.New(errs.Unauthorized, "players register themselves or through an administrator")
	}
	if body.ExternalID == "" || strings.TrimSpace(body.Name) == "" {
		return store.Player{}, errs.New(errs.InvalidArgument, "external id and name are required")
	}

	player := store.Player{
		ID:         uuid.NewString(),
		ExternalID: body.ExternalID,
		Name:       strings.TrimSpace(body.Name),
		Status:     store.FreeAgent,
	}
	err := l.env.Run(ctx, "register_player", func(tx store.Tx) ([]feed.Event, error) {
		_, err := tx.PlayerByExternalID(body.ExternalID)
		if err == nil {
			return nil, errs.New(errs.InvalidArgument, "player %s is already registered", body.ExternalID)
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		if err := tx.SavePlayer(&player); err != nil {
			return nil, err
		}
		return []feed.Event{{Kind: feed.PlayerRegistered, PlayerID: player.ID, Actor: actor.ID, At: l.env.Clock()}}, nil
	})
	return player, err
}

func (l *LeagueService) Teams(ctx context.Context) ([]store.Team, error) {
	var teams []store.Team
	err := l.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		teams, err = tx.Teams()
		return err
	})
	return teams, err
}

func (l *LeagueService) PlayerByExternalID(ctx context.Context, externalID string) (store.Player, error) {
	var p store.Player
	err := l.env.Store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.PlayerByExternalID(externalID)
		return err
	})
	return p, err
}
