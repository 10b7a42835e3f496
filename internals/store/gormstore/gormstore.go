// Package gormstore is the postgres-backed store.Store. Each unit of work is
// one read-committed transaction. LockTeams and LockPlayers take their rows
// FOR UPDATE in increasing id order; every other read is a plain select, so
// the only row locks are the ones the engine asks for, in the order it asks.
// Views run in a read-only repeatable-read transaction.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Models lists every table the engine owns, in dependency order.
func Models() []any {
	return []any{
		&store.Team{},
		&store.Player{},
		&store.Contract{},
		&store.TradeProposal{},
		&store.TradeAsset{},
		&store.Waiver{},
		&store.StatusChange{},
	}
}

func (s *Store) Tx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db, lock: true})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	}, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
}

type tx struct {
	db   *gorm.DB
	lock bool
}

func (t *tx) q() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFoundf(entity, id)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}

func (t *tx) Team(id string) (store.Team, error) {
	var team store.Team
	if err := t.db.Where("id = ?", id).First(&team).Error; err != nil {
		return store.Team{}, notFound(err, "team", id)
	}
	return team, nil
}

func (t *tx) LockTeams(ids ...string) ([]store.Team, error) {
	sorted := append([]string(nil), ids...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var teams []store.Team
	if err := t.q().Where("id IN ?", sorted).Order("id").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("lock teams: %w", err)
	}
	if len(teams) != len(sorted) {
		for _, id := range sorted {
			if !slices.ContainsFunc(teams, func(team store.Team) bool { return team.ID == id }) {
				return nil, errs.TeamNotFound(id)
			}
		}
	}
	return teams, nil
}

func (t *tx) Teams() ([]store.Team, error) {
	var teams []store.Team
	if err := t.db.Order("id").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (t *tx) SaveTeam(team *store.Team) error {
	return t.db.Save(team).Error
}

func (t *tx) Player(id string) (store.Player, error) {
	var p store.Player
	if err := t.db.Where("id = ?", id).First(&p).Error; err != nil {
		return store.Player{}, notFound(err, "player", id)
	}
	return p, nil
}

func (t *tx) LockPlayers(ids ...string) ([]store.Player, error) {
	sorted := append([]string(nil), ids...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var players []store.Player
	if err := t.q().Where("id IN ?", sorted).Order("id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("lock players: %w", err)
	}
	if len(players) != len(sorted) {
		for _, id := range sorted {
			if !slices.ContainsFunc(players, func(p store.Player) bool { return p.ID == id }) {
				return nil, errs.NotFoundf("player", id)
			}
		}
	}
	return players, nil
}

func (t *tx) PlayerByExternalID(externalID string) (store.Player, error) {
	var p store.Player
	if err := t.db.Where("external_id = ?", externalID).First(&p).Error; err != nil {
		return store.Player{}, notFound(err, "player", externalID)
	}
	return p, nil
}

func (t *tx) TeamRoster(teamID string) ([]store.Player, error) {
	var players []store.Player
	err := t.db.Where("team_id = ? AND status = ?", teamID, store.Signed).Order("name, id").Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("roster for team %s: %w", teamID, err)
	}
	return players, nil
}

func (t *tx) CountExempt(teamID string) (int, error) {
	// Exemption flags change only under the team's lock.
	var players []store.Player
	if err := t.db.Where("team_id = ? AND exempt = ?", teamID, true).Find(&players).Error; err != nil {
		return 0, fmt.Errorf("count exempt for team %s: %w", teamID, err)
	}
	return len(players), nil
}

func (t *tx) SavePlayer(p *store.Player) error {
	return t.db.Omit(clause.Associations).Save(p).Error
}

func (t *tx) Contract(id string) (store.Contract, error) {
	var c store.Contract
	if err := t.db.Where("id = ?", id).First(&c).Error; err != nil {
		return store.Contract{}, notFound(err, "contract", id)
	}
	return c, nil
}

func (t *tx) findContract(playerID string, statuses ...store.ContractStatus) (store.Contract, error) {
	var c store.Contract
	err := t.db.Where("player_id = ? AND status IN ?", playerID, statuses).First(&c).Error
	if err != nil {
		return store.Contract{}, notFound(err, "contract", "for player "+playerID)
	}
	return c, nil
}

func (t *tx) FindActiveContract(playerID string) (store.Contract, error) {
	return t.findContract(playerID, store.ContractActive)
}

func (t *tx) FindOpenContract(playerID string) (store.Contract, error) {
	return t.findContract(playerID, store.ContractPending, store.ContractActive)
}

func (t *tx) ActiveContractsForTeam(teamID string) ([]store.Contract, error) {
	var out []store.Contract
	err := t.db.Where("team_id = ? AND status = ?", teamID, store.ContractActive).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("active contracts for team %s: %w", teamID, err)
	}
	return out, nil
}

func (t *tx) PendingOffersBefore(at time.Time) ([]store.Contract, error) {
	var out []store.Contract
	err := t.db.Where("status = ? AND offer_expires_at <= ?", store.ContractPending, at).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("pending offers: %w", err)
	}
	return out, nil
}

func (t *tx) SaveContract(c *store.Contract) error {
	return t.db.Omit(clause.Associations).Save(c).Error
}

func (t *tx) TradeProposal(id string) (store.TradeProposal, error) {
	var p store.TradeProposal
	if err := t.db.Where("id = ?", id).First(&p).Error; err != nil {
		return store.TradeProposal{}, notFound(err, "trade proposal", id)
	}
	if err := t.db.Where("proposal_id = ?", id).Order("id").Find(&p.Assets).Error; err != nil {
		return store.TradeProposal{}, fmt.Errorf("assets for proposal %s: %w", id, err)
	}
	return p, nil
}

func (t *tx) OpenProposals() ([]store.TradeProposal, error) {
	var out []store.TradeProposal
	err := t.db.Preload("Assets").
		Where("status IN ?", []store.TradeStatus{store.TradePending, store.TradeAccepted}).
		Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("open proposals: %w", err)
	}
	return out, nil
}

func (t *tx) SaveTradeProposal(p *store.TradeProposal) error {
	var count int64
	if err := t.db.Model(&store.TradeProposal{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		// Creates the proposal and its assets together.
		return t.db.Create(p).Error
	}
	return t.db.Omit(clause.Associations).Save(p).Error
}

func (t *tx) Waiver(id string) (store.Waiver, error) {
	var w store.Waiver
	if err := t.db.Where("id = ?", id).First(&w).Error; err != nil {
		return store.Waiver{}, notFound(err, "waiver", id)
	}
	return w, nil
}

func (t *tx) ActiveWaiverForPlayer(playerID string) (store.Waiver, error) {
	var w store.Waiver
	err := t.db.Where("player_id = ? AND status = ?", playerID, store.WaiverActive).First(&w).Error
	if err != nil {
		return store.Waiver{}, notFound(err, "waiver", "for player "+playerID)
	}
	return w, nil
}

func (t *tx) DueWaivers(at time.Time) ([]store.Waiver, error) {
	var out []store.Waiver
	err := t.db.Where("status = ? AND ends_at <= ?", store.WaiverActive, at).Order("ends_at").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("due waivers: %w", err)
	}
	return out, nil
}

func (t *tx) SaveWaiver(w *store.Waiver) error {
	return t.db.Save(w).Error
}

func (t *tx) AppendStatusChange(c *store.StatusChange) error {
	return t.db.Create(c).Error
}

func (t *tx) StatusHistory(playerID string) ([]store.StatusChange, error) {
	var out []store.StatusChange
	if err := t.db.Where("player_id = ?", playerID).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("status history for player %s: %w", playerID, err)
	}
	return out, nil
}
