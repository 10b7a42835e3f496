package feed

import "time"

type Kind string

const (
	TeamCreated        Kind = "team_created"
	PlayerRegistered   Kind = "player_registered"
	ContractOffered    Kind = "contract_offered"
	ContractAccepted   Kind = "contract_accepted"
	ContractRejected   Kind = "contract_rejected"
	ContractExpired    Kind = "contract_expired"
	ContractTerminated Kind = "contract_terminated"
	TradeProposed      Kind = "trade_proposed"
	TradeAccepted      Kind = "trade_accepted"
	TradeRejected      Kind = "trade_rejected"
	TradeApproved      Kind = "trade_approved"
	TradeDenied        Kind = "trade_denied"
	TradeExpired       Kind = "trade_expired"
	PlayerReleased     Kind = "player_released"
	WaiverClaimed      Kind = "waiver_claimed"
	WaiverCleared      Kind = "waiver_cleared"
	ExemptionChanged   Kind = "exemption_changed"
	CapReconciled      Kind = "cap_reconciled"
)

// Event describes one committed roster transaction.
type Event struct {
	Kind     Kind      `json:"kind"`
	TeamIDs  []string  `json:"team_ids,omitempty"`
	PlayerID string    `json:"player_id,omitempty"`
	RefID    string    `json:"ref_id,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

// Touches reports whether the event changed anything on team.
func (e Event) Touches(teamID string) bool {
	for _, id := range e.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}
