package trade

// ProposeRequest names the players leaving each side. Outgoing players move
// from FromTeamID to ToTeamID; Incoming players move the other way and may be
// empty for a one-way trade.
type ProposeRequest struct {
	FromTeamID string   `json:"from_team_id"`
	ToTeamID   string   `json:"to_team_id"`
	Outgoing   []string `json:"outgoing"`
	Incoming   []string `json:"incoming"`
	MessageRef string   `json:"message_ref"`
}

// impact is what applying a proposal does to one team.
type impact struct {
	capDelta    int64
	exemptDelta int
}
