package trip

// Trip planner (EFA rapidJSON) response structures. Optional fields are
// pointers so that absent values can be told apart from zero values.

// RawResponse is the envelope returned by the trip endpoint.
type RawResponse struct {
	Version  string        `json:"version"`
	Journeys []*RawJourney `json:"journeys"`
}

// RawJourney is one candidate itinerary.
type RawJourney struct {
	Interchanges *int      `json:"interchanges,omitempty"`
	Legs         []*RawLeg `json:"legs"`
}

// RawLeg is one segment of an itinerary on a single vehicle or on foot.
type RawLeg struct {
	Duration       *int               `json:"duration,omitempty"`
	Distance       *int               `json:"distance,omitempty"`
	Origin         *RawStop           `json:"origin,omitempty"`
	Destination    *RawStop           `json:"destination,omitempty"`
	Transportation *RawTransportation `json:"transportation,omitempty"`
	StopSequence   []*RawStop         `json:"stopSequence,omitempty"`
	Coords         [][]float64        `json:"coords,omitempty"`
	IsRealtime     *bool              `json:"isRealtimeControlled,omitempty"`
}

// RawStop describes a stop or platform with its timetable entries.
type RawStop struct {
	ID                     string             `json:"id,omitempty"`
	Name                   *string            `json:"name,omitempty"`
	DisassembledName       *string            `json:"disassembledName,omitempty"`
	Type                   string             `json:"type,omitempty"`
	Coord                  []float64          `json:"coord,omitempty"`
	ArrivalTimePlanned     *string            `json:"arrivalTimePlanned,omitempty"`
	ArrivalTimeEstimated   *string            `json:"arrivalTimeEstimated,omitempty"`
	DepartureTimePlanned   *string            `json:"departureTimePlanned,omitempty"`
	DepartureTimeEstimated *string            `json:"departureTimeEstimated,omitempty"`
	Properties             *RawStopProperties `json:"properties,omitempty"`
}

// RawStopProperties holds free-form stop attributes.
type RawStopProperties struct {
	Platform     string `json:"platform,omitempty"`
	PlatformName string `json:"platformName,omitempty"`
	StopID       string `json:"stopId,omitempty"`
}

// RawTransportation describes the vehicle serving a leg.
type RawTransportation struct {
	ID               string                       `json:"id,omitempty"`
	Name             *string                      `json:"name,omitempty"`
	DisassembledName *string                      `json:"disassembledName,omitempty"`
	Number           *string                      `json:"number,omitempty"`
	Product          *RawProduct                  `json:"product,omitempty"`
	Properties       *RawTransportationProperties `json:"properties,omitempty"`
}

// RawProduct is the mode of transport.
type RawProduct struct {
	Class int    `json:"class"`
	Name  string `json:"name,omitempty"`
}

// RawTransportationProperties carries realtime correlation ids.
type RawTransportationProperties struct {
	RealtimeTripID *string `json:"RealtimeTripId,omitempty"`
	TripCode       *int    `json:"tripCode,omitempty"`
}
