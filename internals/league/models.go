package league

type CreateTeamRequestBody struct {
	Name       string `json:"name"`
	CapCeiling int64  `json:"cap_ceiling"`
	CapFloor   int64  `json:"cap_floor"`
}

type RegisterPlayerRequestBody struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}
