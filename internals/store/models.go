package store

import "time"

type PlayerStatus string

const (
	FreeAgent PlayerStatus = "free_agent"
	Signed    PlayerStatus = "signed"
	OnWaivers PlayerStatus = "waivers"
)

type ContractStatus string

const (
	ContractPending    ContractStatus = "pending"
	ContractActive     ContractStatus = "active"
	ContractRejected   ContractStatus = "rejected"
	ContractExpired    ContractStatus = "expired"
	ContractDeclined   ContractStatus = "declined"
	ContractTerminated ContractStatus = "terminated"
)

type ContractKind string

const (
	StandardContract ContractKind = "standard"
	EntryLevel       ContractKind = "elc"
)

type TradeStatus string

const (
	TradePending       TradeStatus = "pending"
	TradeAccepted      TradeStatus = "accepted"
	TradeRejected      TradeStatus = "rejected"
	TradeAdminApproved TradeStatus = "admin_approved"
	TradeAdminRejected TradeStatus = "admin_rejected"
	TradeExpired       TradeStatus = "expired"
)

type WaiverStatus string

const (
	WaiverActive  WaiverStatus = "active"
	WaiverCleared WaiverStatus = "cleared"
	WaiverClaimed WaiverStatus = "claimed"
)

// Team table. AvailableCap is a denormalized cache of
// CapCeiling - sum(active, non-exempt salaries).
type Team struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null;uniqueIndex"`
	CapCeiling   int64     `json:"cap_ceiling" gorm:"not null"`
	CapFloor     int64     `json:"cap_floor" gorm:"not null"`
	AvailableCap int64     `json:"available_cap" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Player table. TeamID is set iff Status is Signed.
type Player struct {
	ID         string       `json:"id" gorm:"primaryKey"`
	ExternalID string       `json:"external_id" gorm:"not null;uniqueIndex"`
	Name       string       `json:"name" gorm:"not null"`
	Status     PlayerStatus `json:"status" gorm:"not null;index"`
	TeamID     *string      `json:"team_id" gorm:"index"`
	Team       *Team        `json:"-" gorm:"foreignKey:TeamID"`
	Exempt     bool         `json:"exempt" gorm:"not null;default:false"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CurrentTeam returns the team id, or "" for unaffiliated players.
func (p Player) CurrentTeam() string {
	if p.TeamID == nil {
		return ""
	}
	return *p.TeamID
}

func (p Player) OnTeam(teamID string) bool {
	return p.Status == Signed && p.CurrentTeam() == teamID
}

type Contract struct {
	ID                    string         `json:"id" gorm:"primaryKey"`
	PlayerID              string         `json:"player_id" gorm:"not null;index"`
	Player                *Player        `json:"-" gorm:"foreignKey:PlayerID"`
	TeamID                string         `json:"team_id" gorm:"not null;index"`
	Team                  *Team          `json:"-" gorm:"foreignKey:TeamID"`
	Kind                  ContractKind   `json:"kind" gorm:"not null;default:standard"`
	Salary                int64          `json:"salary" gorm:"not null"`
	StartsAt              time.Time      `json:"starts_at"`
	EndsAt                time.Time      `json:"ends_at"`
	Status                ContractStatus `json:"status" gorm:"not null;index"`
	OfferExpiresAt        *time.Time     `json:"offer_expires_at,omitempty"`
	OriginatingMessageRef string         `json:"originating_message_ref,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Open reports whether the contract counts toward the one-open-contract rule.
func (c Contract) Open() bool {
	return c.Status == ContractPending || c.Status == ContractActive
}

type TradeProposal struct {
	ID                    string       `json:"id" gorm:"primaryKey"`
	FromTeamID            string       `json:"from_team_id" gorm:"not null;index"`
	ToTeamID              string       `json:"to_team_id" gorm:"not null;index"`
	ProposedBy            string       `json:"proposed_by" gorm:"not null"`
	Status                TradeStatus  `json:"status" gorm:"not null;index"`
	Assets                []TradeAsset `json:"assets" gorm:"foreignKey:ProposalID"`
	RespondBy             time.Time    `json:"respond_by"`
	ReviewBy              *time.Time   `json:"review_by,omitempty"`
	DecidedBy             string       `json:"decided_by,omitempty"`
	OriginatingMessageRef string       `json:"originating_message_ref,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// TradeAsset is one player moving between the two teams of a proposal.
// Salary is a snapshot taken at proposal time for display only.
type TradeAsset struct {
	ID         uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	ProposalID string `json:"-" gorm:"not null;index"`
	PlayerID   string `json:"player_id" gorm:"not null"`
	FromTeamID string `json:"from_team_id" gorm:"not null"`
	ToTeamID   string `json:"to_team_id" gorm:"not null"`
	Salary     int64  `json:"salary"`
}

type Waiver struct {
	ID            string       `json:"id" gorm:"primaryKey"`
	PlayerID      string       `json:"player_id" gorm:"not null;index"`
	TeamID        string       `json:"team_id" gorm:"not null;index"`
	PriorSalary   int64        `json:"prior_salary"`
	PriorEndsAt   time.Time    `json:"prior_ends_at"`
	StartsAt      time.Time    `json:"starts_at"`
	EndsAt        time.Time    `json:"ends_at" gorm:"index"`
	Status        WaiverStatus `json:"status" gorm:"not null;index"`
	ClaimedByTeam *string      `json:"claimed_by_team,omitempty"`
	ClaimContract *string      `json:"claim_contract,omitempty"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// StatusChange is one row of a player's affiliation history.
type StatusChange struct {
	ID         uint         `json:"-" gorm:"primaryKey;autoIncrement"`
	PlayerID   string       `json:"player_id" gorm:"not null;index"`
	FromStatus PlayerStatus `json:"from"`
	ToStatus   PlayerStatus `json:"to"`
	TeamID     string       `json:"team_id,omitempty"`
	Reason     string       `json:"reason"`
	At         time.Time    `json:"at"`
}
