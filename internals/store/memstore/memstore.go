// Package memstore is an in-memory store.Store. A unit of work runs against a
// private clone of the state and replaces it on success, so a failed
// operation leaves nothing behind. Used by tests and single-process runs.
//
// Units of work are serialized by one mutex, so memstore needs no row locks
// of its own. It still tracks LockTeams and LockPlayers and rejects any unit
// of work that breaks the lock order or updates a record without holding its
// lock, which keeps the engine honest about what the postgres store relies on.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"golang.org/x/exp/slices"
)

var (
	errReadOnly  = errors.New("memstore: write inside a read-only view")
	errLockOrder = errors.New("memstore: locks taken out of order")
	errNotLocked = errors.New("memstore: update without holding the lock")
)

type state struct {
	teams     map[string]store.Team
	players   map[string]store.Player
	contracts map[string]store.Contract
	proposals map[string]store.TradeProposal
	waivers   map[string]store.Waiver
	history   []store.StatusChange
	seq       uint
}

func newState() state {
	return state{
		teams:     make(map[string]store.Team),
		players:   make(map[string]store.Player),
		contracts: make(map[string]store.Contract),
		proposals: make(map[string]store.TradeProposal),
		waivers:   make(map[string]store.Waiver),
	}
}

func (s state) clone() state {
	cp := newState()
	for k, v := range s.teams {
		cp.teams[k] = v
	}
	for k, v := range s.players {
		cp.players[k] = clonePlayer(v)
	}
	for k, v := range s.contracts {
		cp.contracts[k] = cloneContract(v)
	}
	for k, v := range s.proposals {
		cp.proposals[k] = cloneProposal(v)
	}
	for k, v := range s.waivers {
		cp.waivers[k] = cloneWaiver(v)
	}
	cp.history = append([]store.StatusChange(nil), s.history...)
	cp.seq = s.seq
	return cp
}

func strPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func timePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clonePlayer(p store.Player) store.Player {
	p.TeamID = strPtr(p.TeamID)
	p.Team = nil
	return p
}

func cloneContract(c store.Contract) store.Contract {
	c.OfferExpiresAt = timePtr(c.OfferExpiresAt)
	c.Player, c.Team = nil, nil
	return c
}

func cloneProposal(p store.TradeProposal) store.TradeProposal {
	p.Assets = append([]store.TradeAsset(nil), p.Assets...)
	p.ReviewBy = timePtr(p.ReviewBy)
	return p
}

func cloneWaiver(w store.Waiver) store.Waiver {
	w.ClaimedByTeam = strPtr(w.ClaimedByTeam)
	w.ClaimContract = strPtr(w.ClaimContract)
	w.ResolvedAt = timePtr(w.ResolvedAt)
	return w
}

// Store holds every record in memory. Units of work are serialized by a
// single mutex.
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Tx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tx{
		state:   s.state.clone(),
		now:     s.now(),
		teams:   make(map[string]bool),
		players: make(map[string]bool),
	}
	if err := fn(t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{state: s.state, readOnly: true})
}

type tx struct {
	state    state
	readOnly bool
	now      time.Time

	// Lock bookkeeping: held ids and the highest id taken so far.
	teams, players       map[string]bool
	lastTeam, lastPlayer string
}

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// take records the locks in sorted, skipping ids already held. A new id must
// sort after every id taken before it.
func take(held map[string]bool, last *string, sorted []string) error {
	for _, id := range sorted {
		if held[id] {
			continue
		}
		if *last != "" && id < *last {
			return fmt.Errorf("%w: %s after %s", errLockOrder, id, *last)
		}
		held[id] = true
		*last = id
	}
	return nil
}

func (t *tx) requireTeams(ids ...string) error {
	for _, id := range ids {
		if _, exists := t.state.teams[id]; exists && !t.teams[id] {
			return fmt.Errorf("%w: team %s", errNotLocked, id)
		}
	}
	return nil
}

func (t *tx) requirePlayer(id string) error {
	if _, exists := t.state.players[id]; exists && !t.players[id] {
		return fmt.Errorf("%w: player %s", errNotLocked, id)
	}
	return nil
}

func sortedIDs(ids []string) []string {
	sorted := append([]string(nil), ids...)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

func (t *tx) Team(id string) (store.Team, error) {
	team, ok := t.state.teams[id]
	if !ok {
		return store.Team{}, errs.TeamNotFound(id)
	}
	return team, nil
}

func (t *tx) LockTeams(ids ...string) ([]store.Team, error) {
	sorted := sortedIDs(ids)
	out := make([]store.Team, 0, len(sorted))
	for _, id := range sorted {
		team, err := t.Team(id)
		if err != nil {
			return nil, err
		}
		out = append(out, team)
	}
	if t.readOnly {
		return out, nil
	}
	for _, id := range sorted {
		if !t.teams[id] && len(t.players) > 0 {
			return nil, fmt.Errorf("%w: team %s after players", errLockOrder, id)
		}
	}
	if err := take(t.teams, &t.lastTeam, sorted); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) Teams() ([]store.Team, error) {
	out := make([]store.Team, 0, len(t.state.teams))
	for _, team := range t.state.teams {
		out = append(out, team)
	}
	slices.SortFunc(out, func(a, b store.Team) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) SaveTeam(team *store.Team) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requireTeams(team.ID); err != nil {
		return err
	}
	if _, ok := t.state.teams[team.ID]; !ok {
		team.CreatedAt = t.now
	}
	team.UpdatedAt = t.now
	t.state.teams[team.ID] = *team
	return nil
}

func (t *tx) Player(id string) (store.Player, error) {
	p, ok := t.state.players[id]
	if !ok {
		return store.Player{}, errs.NotFoundf("player", id)
	}
	return clonePlayer(p), nil
}

func (t *tx) LockPlayers(ids ...string) ([]store.Player, error) {
	sorted := sortedIDs(ids)
	out := make([]store.Player, 0, len(sorted))
	for _, id := range sorted {
		p, err := t.Player(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if t.readOnly {
		return out, nil
	}
	if err := take(t.players, &t.lastPlayer, sorted); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) PlayerByExternalID(externalID string) (store.Player, error) {
	for _, p := range t.state.players {
		if p.ExternalID == externalID {
			return clonePlayer(p), nil
		}
	}
	return store.Player{}, errs.NotFoundf("player", externalID)
}

func (t *tx) TeamRoster(teamID string) ([]store.Player, error) {
	out := make([]store.Player, 0)
	for _, p := range t.state.players {
		if p.OnTeam(teamID) {
			out = append(out, clonePlayer(p))
		}
	}
	slices.SortFunc(out, func(a, b store.Player) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (t *tx) CountExempt(teamID string) (int, error) {
	n := 0
	for _, p := range t.state.players {
		if p.Exempt && p.CurrentTeam() == teamID {
			n++
		}
	}
	return n, nil
}

func (t *tx) SavePlayer(p *store.Player) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requirePlayer(p.ID); err != nil {
		return err
	}
	if _, ok := t.state.players[p.ID]; !ok {
		p.CreatedAt = t.now
	}
	p.UpdatedAt = t.now
	t.state.players[p.ID] = clonePlayer(*p)
	return nil
}

func (t *tx) Contract(id string) (store.Contract, error) {
	c, ok := t.state.contracts[id]
	if !ok {
		return store.Contract{}, errs.NotFoundf("contract", id)
	}
	return cloneContract(c), nil
}

func (t *tx) findContract(playerID string, match func(store.Contract) bool) (store.Contract, error) {
	for _, c := range t.state.contracts {
		if c.PlayerID == playerID && match(c) {
			return cloneContract(c), nil
		}
	}
	return store.Contract{}, errs.NotFoundf("contract", "for player "+playerID)
}

func (t *tx) FindActiveContract(playerID string) (store.Contract, error) {
	return t.findContract(playerID, func(c store.Contract) bool { return c.Status == store.ContractActive })
}

func (t *tx) FindOpenContract(playerID string) (store.Contract, error) {
	return t.findContract(playerID, store.Contract.Open)
}

func (t *tx) ActiveContractsForTeam(teamID string) ([]store.Contract, error) {
	out := make([]store.Contract, 0)
	for _, c := range t.state.contracts {
		if c.TeamID == teamID && c.Status == store.ContractActive {
			out = append(out, cloneContract(c))
		}
	}
	slices.SortFunc(out, func(a, b store.Contract) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) PendingOffersBefore(at time.Time) ([]store.Contract, error) {
	out := make([]store.Contract, 0)
	for _, c := range t.state.contracts {
		if c.Status == store.ContractPending && c.OfferExpiresAt != nil && !c.OfferExpiresAt.After(at) {
			out = append(out, cloneContract(c))
		}
	}
	slices.SortFunc(out, func(a, b store.Contract) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) SaveContract(c *store.Contract) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requirePlayer(c.PlayerID); err != nil {
		return err
	}
	if _, ok := t.state.contracts[c.ID]; !ok {
		c.CreatedAt = t.now
	}
	c.UpdatedAt = t.now
	t.state.contracts[c.ID] = cloneContract(*c)
	return nil
}

func (t *tx) TradeProposal(id string) (store.TradeProposal, error) {
	p, ok := t.state.proposals[id]
	if !ok {
		return store.TradeProposal{}, errs.NotFoundf("trade proposal", id)
	}
	return cloneProposal(p), nil
}

func (t *tx) OpenProposals() ([]store.TradeProposal, error) {
	out := make([]store.TradeProposal, 0)
	for _, p := range t.state.proposals {
		if p.Status == store.TradePending || p.Status == store.TradeAccepted {
			out = append(out, cloneProposal(p))
		}
	}
	slices.SortFunc(out, func(a, b store.TradeProposal) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) SaveTradeProposal(p *store.TradeProposal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requireTeams(p.FromTeamID, p.ToTeamID); err != nil {
		return err
	}
	if _, ok := t.state.proposals[p.ID]; !ok {
		p.CreatedAt = t.now
		for i := range p.Assets {
			t.state.seq++
			p.Assets[i].ID = t.state.seq
			p.Assets[i].ProposalID = p.ID
		}
	}
	p.UpdatedAt = t.now
	t.state.proposals[p.ID] = cloneProposal(*p)
	return nil
}

func (t *tx) Waiver(id string) (store.Waiver, error) {
	w, ok := t.state.waivers[id]
	if !ok {
		return store.Waiver{}, errs.NotFoundf("waiver", id)
	}
	return cloneWaiver(w), nil
}

func (t *tx) ActiveWaiverForPlayer(playerID string) (store.Waiver, error) {
	for _, w := range t.state.waivers {
		if w.PlayerID == playerID && w.Status == store.WaiverActive {
			return cloneWaiver(w), nil
		}
	}
	return store.Waiver{}, errs.NotFoundf("waiver", "for player "+playerID)
}

func (t *tx) DueWaivers(at time.Time) ([]store.Waiver, error) {
	out := make([]store.Waiver, 0)
	for _, w := range t.state.waivers {
		if w.Status == store.WaiverActive && !w.EndsAt.After(at) {
			out = append(out, cloneWaiver(w))
		}
	}
	slices.SortFunc(out, func(a, b store.Waiver) int { return a.EndsAt.Compare(b.EndsAt) })
	return out, nil
}

func (t *tx) SaveWaiver(w *store.Waiver) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requirePlayer(w.PlayerID); err != nil {
		return err
	}
	if _, ok := t.state.waivers[w.ID]; !ok {
		w.CreatedAt = t.now
	}
	w.UpdatedAt = t.now
	t.state.waivers[w.ID] = cloneWaiver(*w)
	return nil
}

func (t *tx) AppendStatusChange(c *store.StatusChange) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.seq++
	c.ID = t.state.seq
	t.state.history = append(t.state.history, *c)
	return nil
}

func (t *tx) StatusHistory(playerID string) ([]store.StatusChange, error) {
	out := make([]store.StatusChange, 0)
	for _, c := range t.state.history {
		if c.PlayerID == playerID {
			out = append(out, c)
		}
	}
	return out, nil
}
