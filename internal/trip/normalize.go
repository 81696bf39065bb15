// Package trip turns raw trip planner responses into display ready journeys.
package trip

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/pkg/polyline"
)

// DefaultTimezone is the zone used to render clock times.
const DefaultTimezone = "Australia/Sydney"

// NormalizerConfig holds configuration for the normalizer.
type NormalizerConfig struct {
	// Location renders clock times (default: Australia/Sydney, falling back to UTC).
	Location *time.Location

	// Logger for dropped entries.
	Logger zerolog.Logger

	// IncludePaths encodes leg coordinates into Leg.Path.
	IncludePaths bool

	// PathSampleMeters drops path vertices closer than this many meters apart.
	// Zero keeps every point.
	PathSampleMeters float64
}

// Normalizer converts raw journeys into normalized journeys.
// It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	loc              *time.Location
	logger           zerolog.Logger
	includePaths     bool
	pathSampleMeters float64
}

// NewNormalizer creates a new normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	loc := cfg.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}

	return &Normalizer{
		loc:              loc,
		logger:           cfg.Logger,
		includePaths:     cfg.IncludePaths,
		pathSampleMeters: cfg.PathSampleMeters,
	}
}

// Normalize converts raw journeys in order. Nil legs are skipped; nil journeys
// and journeys without any usable leg are dropped. It never fails.
func (n *Normalizer) Normalize(raw []*RawJourney) []*Journey {
	journeys := make([]*Journey, 0, len(raw))

	for i, rj := range raw {
		if rj == nil {
			n.logger.Debug().Int("index", i).Msg("dropping nil journey")
			continue
		}

		legs := make([]*RawLeg, 0, len(rj.Legs))
		for _, rl := range rj.Legs {
			if rl != nil {
				legs = append(legs, rl)
			}
		}
		if len(legs) == 0 {
			n.logger.Debug().Int("index", i).Msg("dropping journey without legs")
			continue
		}

		j := &Journey{
			Legs:            make([]*Leg, 0, len(legs)),
			HasInterchanges: rj.Interchanges != nil && *rj.Interchanges > 0,
		}
		for k, rl := range legs {
			var next *RawLeg
			if k < len(legs)-1 {
				next = legs[k+1]
			}
			j.Legs = append(j.Legs, n.normalizeLeg(rl, next))
		}

		journeys = append(journeys, j)
	}

	return journeys
}

// normalizeLeg builds a leg; next is nil for the final leg.
func (n *Normalizer) normalizeLeg(rl, next *RawLeg) *Leg {
	station, platform := splitOriginName(rl.Origin)

	leg := &Leg{
		RouteNo:          routeNo(rl),
		Station:          station,
		Platform:         platform,
		Destination:      destinationName(rl),
		DepartTime:       n.clock(stopTime(rl.Origin, departureEstimated)),
		ArrivalTime:      n.clock(stopTime(rl.Destination, arrivalEstimated)),
		TravelTime:       FormatTravelTime(intValue(rl.Duration)),
		TransferRequired: next != nil,
		TransferRouteNo:  NoRoute,
		Stops:            n.stops(rl.StopSequence),
		OnTime:           onTime(rl.Destination),
	}
	if next != nil {
		leg.TransferRouteNo = routeNo(next)
	}

	if t := rl.Transportation; t != nil && t.Properties != nil && t.Properties.RealtimeTripID != nil {
		leg.RealTimeLocationID = *t.Properties.RealtimeTripID
	}

	leg.RouteColor = RouteColor(leg.RouteNo)

	points := pathPoints(rl.Coords)
	if rl.Distance != nil && *rl.Distance > 0 {
		leg.DistanceMeters = *rl.Distance
	} else {
		leg.DistanceMeters = int(polyline.Length(points))
	}

	if n.includePaths && len(points) > 0 {
		if n.pathSampleMeters > 0 {
			points = polyline.Thin(points, n.pathSampleMeters)
		}
		leg.Path = polyline.Encode(points)
	}

	return leg
}

// stops maps the stop sequence. A time is shown only when the planned value
// exists, but it is rendered from the estimated value.
// TODO: decide with the mobile client whether stops should show the planned
// time; switching changes what riders see for delayed services.
func (n *Normalizer) stops(seq []*RawStop) []Stop {
	stops := make([]Stop, 0, len(seq))
	for _, rs := range seq {
		if rs == nil {
			continue
		}

		s := Stop{
			Name:          UnknownStop,
			ArrivalTime:   NoTime,
			DepartureTime: NoTime,
			Platform:      NoTime,
		}
		if rs.Name != nil && *rs.Name != "" {
			s.Name = *rs.Name
		}
		if rs.ArrivalTimePlanned != nil {
			s.ArrivalTime = n.stopClock(rs.ArrivalTimeEstimated)
		}
		if rs.DepartureTimePlanned != nil {
			s.DepartureTime = n.stopClock(rs.DepartureTimeEstimated)
		}
		if rs.Properties != nil && rs.Properties.Platform != "" {
			s.Platform = rs.Properties.Platform
		}

		stops = append(stops, s)
	}
	return stops
}

// clock formats a timestamp as HH:MM. Hours and minutes default to "--"
// independently.
func (n *Normalizer) clock(ts *string) string {
	hours, minutes := NoClockPart, NoClockPart
	if t, ok := parseTimestamp(ts); ok {
		local := t.In(n.loc)
		hours = fmt.Sprintf("%02d", local.Hour())
		minutes = fmt.Sprintf("%02d", local.Minute())
	}
	return hours + ":" + minutes
}

// stopClock formats a stop timestamp, using "-" when it cannot be rendered.
func (n *Normalizer) stopClock(ts *string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return NoTime
	}
	return t.In(n.loc).Format("15:04")
}

// FormatTravelTime renders a duration in seconds as "H hr M min" or "M min".
func FormatTravelTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}

func splitOriginName(origin *RawStop) (station, platform string) {
	station, platform = UnknownOrigin, NoPlatform
	if origin == nil || origin.Name == nil {
		return station, platform
	}

	parts := strings.Split(*origin.Name, ",")
	if s := stripStationSuffix(parts[0]); s != "" {
		station = s
	}
	if len(parts) > 1 {
		if p := strings.TrimSpace(parts[1]); p != "" {
			platform = p
		}
	}
	return station, platform
}

func destinationName(rl *RawLeg) string {
	if rl.Destination == nil || rl.Destination.Name == nil {
		return UnknownOrigin
	}
	if name := CleanStationName(*rl.Destination.Name); name != "" {
		return name
	}
	return UnknownOrigin
}

func routeNo(rl *RawLeg) string {
	if rl == nil || rl.Transportation == nil || rl.Transportation.DisassembledName == nil {
		return NoRoute
	}
	if r := strings.TrimSpace(*rl.Transportation.DisassembledName); r != "" {
		return r
	}
	return NoRoute
}

func onTime(dest *RawStop) bool {
	if dest == nil {
		return true
	}
	est, estOK := parseTimestamp(dest.ArrivalTimeEstimated)
	planned, plannedOK := parseTimestamp(dest.ArrivalTimePlanned)
	switch {
	case estOK && plannedOK:
		return est.Equal(planned)
	case !estOK && !plannedOK:
		return true
	default:
		return false
	}
}

type stopField int

const (
	departureEstimated stopField = iota
	arrivalEstimated
)

func stopTime(s *RawStop, f stopField) *string {
	if s == nil {
		return nil
	}
	if f == departureEstimated {
		return s.DepartureTimeEstimated
	}
	return s.ArrivalTimeEstimated
}

func parseTimestamp(ts *string) (time.Time, bool) {
	if ts == nil || *ts == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// pathPoints converts [lat, lon] pairs, skipping malformed entries.
func pathPoints(coords [][]float64) []polyline.Point {
	points := make([]polyline.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		points = append(points, polyline.Point{Lat: c[0], Lon: c[1]})
	}
	return points
}
