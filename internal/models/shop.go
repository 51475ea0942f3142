package models

// Shop is an immutable restaurant snapshot copied from the Hotpepper search
// response at selection time. Once appended to a room's candidate list it is
// never mutated.
type Shop struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	PhotoURL string   `json:"photoUrl"`
	Genre    string   `json:"genre"`
	Address  string   `json:"address"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// AppendShopCandidate adds shop to the candidate list unless a shop with the
// same id is already present.
func AppendShopCandidate(candidates []Shop, shop Shop) []Shop {
	for _, s := range candidates {
		if s.ID == shop.ID {
			return candidates
		}
	}
	return append(candidates, shop)
}
