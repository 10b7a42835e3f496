package cache

import (
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/roster"
)

// DefaultTTL bounds how long a summary can outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

// entry is the cached form of a summary, tagged with the team generation it
// was loaded under.
type entry struct {
	Gen     int64             `json:"gen"`
	Summary roster.CapSummary `json:"summary"`
}

func capSummaryKey(teamID string) string {
	return "cap_summary_" + teamID
}

func generationKey(teamID string) string {
	return "cap_generation_" + teamID
}
