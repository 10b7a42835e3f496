package selection

import "time"

// Selection is an in-progress, time-boxed pick list, e.g. the players a
// team agent is assembling into a trade offer.
type Selection struct {
	ID       string    `json:"id"`
	Owner    string    `json:"owner"`
	Purpose  string    `json:"purpose"`
	Items    []string  `json:"items"`
	Deadline time.Time `json:"deadline"`
}

func metaKey(id string) string  { return "selection_" + id }
func itemsKey(id string) string { return "selection_" + id + "_items" }
