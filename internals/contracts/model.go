package contracts

type OfferRequest struct {
	PlayerID   string `json:"player_id"`
	TeamID     string `json:"team_id"`
	Salary     int64  `json:"salary"`
	TermDays   int    `json:"term_days"`
	MessageRef string `json:"message_ref"`
}

type ELCRequest struct {
	PlayerID   string `json:"player_id"`
	TeamID     string `json:"team_id"`
	MessageRef string `json:"message_ref"`
}
