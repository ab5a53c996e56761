package postage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Sternrassler/cm-offers-feed/pkg/country"
)

// Amount is a price as returned by the shipping-cost API. The API has
// served both numbers and preformatted strings.
type Amount string

// UnmarshalJSON accepts a JSON number or string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// MarshalJSON writes numeric amounts as numbers.
func (a Amount) MarshalJSON() ([]byte, error) {
	var n json.Number
	if err := json.Unmarshal([]byte(a), &n); err == nil {
		return []byte(a), nil
	}
	return json.Marshal(string(a))
}

// Option is one shipping method.
type Option struct {
	Price     Amount `json:"price"`
	MaxWeight int    `json:"maxWeight"`
	IsTracked bool   `json:"isTracked"`
}

// Record is the cached option list of one origin/destination pair.
type Record struct {
	ID          string       `json:"id"`
	ShipFrom    country.Code `json:"shipFrom"`
	ShipTo      country.Code `json:"shipTo"`
	YearUpdated int          `json:"yearUpdated"`
	Options     []Option     `json:"postageOptions"`
}

// RecordID returns the collection key of a pair, e.g. "7_11".
func RecordID(from, to country.Code) string {
	return strconv.Itoa(int(from)) + "_" + strconv.Itoa(int(to))
}

// Stale reports whether the record was fetched before year.
func (r Record) Stale(year int) bool {
	return year > r.YearUpdated
}

// SelectCheapest picks the option to display. Options are ordered by price
// ascending, so this is the first tracked option when tracking is required
// and the first option otherwise.
func SelectCheapest(r Record, trackingRequired bool) (Option, bool) {
	for _, opt := range r.Options {
		if !trackingRequired || opt.IsTracked {
			return opt, true
		}
	}
	return Option{}, false
}

// Label formats an option as "(<price> / <maxWeight>g)".
func (o Option) Label() string {
	return fmt.Sprintf("(%s / %dg)", o.Price, o.MaxWeight)
}
