package auth

// Actor is the party invoking an engine operation: a team's acting agent, a
// league administrator, or a player answering an offer.
type Actor struct {
	// ID is the caller's external identity (chat user id).
	ID string `json:"id"`
	// TeamID is the team the caller manages, empty if none.
	TeamID string `json:"team_id,omitempty"`
	Admin  bool   `json:"admin"`
}

// System is used by scheduled jobs.
var System = Actor{ID: "system", Admin: true}

func (a Actor) Manages(teamID string) bool {
	return teamID != "" && a.TeamID == teamID
}

// CanActFor reports whether a may act as teamID's agent.
func (a Actor) CanActFor(teamID string) bool {
	return a.Admin || a.Manages(teamID)
}

type TokenRequestBody struct {
	ActorID string `json:"actor_id"`
	TeamID  string `json:"team_id"`
	Admin   bool   `json:"admin"`
}
