package trip

// Placeholders used when source data is missing.
const (
	NoRoute       = "-"
	NoPlatform    = "N/A"
	NoTime        = "-"
	NoClockPart   = "--"
	UnknownStop   = "Unknown Stop"
	UnknownOrigin = "Unknown"
)

// Journey is a normalized itinerary ready for display.
type Journey struct {
	Legs            []*Leg `json:"legs"`
	HasInterchanges bool   `json:"hasInterchanges"`
}

// FirstLeg returns the first leg or nil.
func (j *Journey) FirstLeg() *Leg {
	if j == nil || len(j.Legs) == 0 {
		return nil
	}
	return j.Legs[0]
}

// LastLeg returns the last leg or nil.
func (j *Journey) LastLeg() *Leg {
	if j == nil || len(j.Legs) == 0 {
		return nil
	}
	return j.Legs[len(j.Legs)-1]
}

// RouteNos returns the ordered route labels of all legs.
func (j *Journey) RouteNos() []string {
	if j == nil {
		return nil
	}
	routes := make([]string, 0, len(j.Legs))
	for _, leg := range j.Legs {
		if leg == nil {
			routes = append(routes, "")
			continue
		}
		routes = append(routes, leg.RouteNo)
	}
	return routes
}

// Leg is one normalized segment of a journey.
type Leg struct {
	// RouteNo is the short route label (e.g. "T1"), or "-" when unknown.
	RouteNo string `json:"routeNo"`

	// Station is the origin station name without platform info or " Station" suffix.
	Station string `json:"station"`

	// Platform is the second comma separated segment of the origin name, or "N/A".
	Platform string `json:"platform"`

	// Destination is the cleaned name of the stop where this leg ends.
	Destination string `json:"destination"`

	// DepartTime and ArrivalTime are "HH:MM", with "--" for unknown components.
	DepartTime  string `json:"departTime"`
	ArrivalTime string `json:"arrivalTime"`

	// TravelTime is a human readable duration such as "1 hr 30 min".
	TravelTime string `json:"travelTime"`

	// DistanceMeters is the reported leg distance, or the path length when absent.
	DistanceMeters int `json:"distanceMeters"`

	TransferRequired bool   `json:"transferRequired"`
	TransferRouteNo  string `json:"transferRouteNo"`

	Stops []Stop `json:"stops"`

	// RealTimeLocationID correlates this leg with live vehicle positions.
	RealTimeLocationID string `json:"realTimeLocationId,omitempty"`

	// OnTime reports whether the estimated arrival matches the timetable.
	OnTime bool `json:"onTime"`

	// RouteColor is the network line color as a hex string.
	RouteColor string `json:"routeColor"`

	// Path is the leg geometry as an encoded polyline.
	Path string `json:"path,omitempty"`
}

// Stop is a single call along a leg.
type Stop struct {
	Name          string `json:"name"`
	ArrivalTime   string `json:"arrivalTime"`
	DepartureTime string `json:"departureTime"`
	Platform      string `json:"platform"`
}
