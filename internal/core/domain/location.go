package domain

import "fmt"

// NotProvided is the sentinel returned when free-text extraction finds no
// known state or city in the input.
const NotProvided = "Not Provided"

// LocationMode says how a location was obtained.
type LocationMode string

const (
	// LocationAuto means device geolocation plus reverse geocoding.
	LocationAuto LocationMode = "auto"
	// LocationManual means typed/spoken text, possibly gazetteer-matched.
	LocationManual LocationMode = "manual"
)

// Coordinates is a raw device position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the pair the way it is shown when reverse geocoding fails.
func (c Coordinates) String() string {
	return fmt.Sprintf("%v, %v", c.Lat, c.Lon)
}

// LocationResult is produced by the location resolver and consumed once by
// the dialogue controller. It is immutable after creation; an "edit
// location" command discards it and starts a new cycle.
type LocationResult struct {
	Mode LocationMode `json:"mode"`
	Text string       `json:"text"`
	Raw  *Coordinates `json:"raw,omitempty"`
}

// Address is the optional-field address object returned by the reverse
// geocoding service.
type Address struct {
	Road          string `json:"road,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	Village       string `json:"village,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
}
