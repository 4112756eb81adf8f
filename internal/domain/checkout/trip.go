package checkout

import "encoding/json"

// DefaultTripTitle is stored when the caller names a trip without a title.
const DefaultTripTitle = "Trip"

// TripRef identifies the trip a booking is for. The storefront sends trips in
// several shapes ({id}, {$id}, {tripId}; {title} or {tripTitle}), all accepted here.
type TripRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

func (t *TripRef) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        string `json:"id"`
		DollarID  string `json:"$id"`
		TripID    string `json:"tripId"`
		Title     string `json:"title"`
		TripTitle string `json:"tripTitle"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.ID = firstNonEmpty(raw.ID, raw.DollarID, raw.TripID)
	t.Title = firstNonEmpty(raw.Title, raw.TripTitle)
	return nil
}

// DisplayTitle returns the title or DefaultTripTitle.
func (t *TripRef) DisplayTitle() string {
	if t == nil || t.Title == "" {
		return DefaultTripTitle
	}
	return t.Title
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
