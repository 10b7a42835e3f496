package roster

// CapSummary is a team's cap picture. The floor is reported, not enforced.
type CapSummary struct {
	TeamID            string `json:"team_id"`
	TeamName          string `json:"team_name"`
	CapCeiling        int64  `json:"cap_ceiling"`
	CapFloor          int64  `json:"cap_floor"`
	AvailableCap      int64  `json:"available_cap"`
	TotalActiveSalary int64  `json:"total_active_salary"`
	CountedSalary     int64  `json:"counted_salary"`
	ExemptPlayers     int    `json:"exempt_players"`
	BelowFloor        bool   `json:"below_floor"`
}

type RosterEntry struct {
	PlayerID   string `json:"player_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	ContractID string `json:"contract_id"`
	Salary     int64  `json:"salary"`
	Exempt     bool   `json:"exempt"`
}

type Roster struct {
	Summary CapSummary    `json:"summary"`
	Players []RosterEntry `json:"players"`
}
