// Package polyline encodes leg geometry in Google's encoded polyline format
// (5 decimal places) so map clients can draw a journey from a short string.
package polyline

import (
	"errors"
	"math"
	"strings"
)

const (
	precision         = 1e5
	earthRadiusMeters = 6371000.0
)

// ErrTruncated is returned by Decode when the input ends mid-value.
var ErrTruncated = errors.New("polyline: truncated input")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Encode returns the encoded polyline for points, or "" for no points.
func Encode(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(points) * 8)

	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * precision))
		lon := int64(math.Round(p.Lon * precision))
		writeSigned(&sb, lat-prevLat)
		writeSigned(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

// writeSigned zigzag-encodes v and emits it in 5-bit groups, low bits first.
func writeSigned(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

// Decode parses an encoded polyline. An empty string decodes to nil.
func Decode(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, nil
	}

	var (
		points   []Point
		lat, lon int64
		pos      int
	)
	for pos < len(encoded) {
		dLat, next, err := readSigned(encoded, pos)
		if err != nil {
			return nil, err
		}
		dLon, next, err := readSigned(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dLat
		lon += dLon
		points = append(points, Point{Lat: float64(lat) / precision, Lon: float64(lon) / precision})
	}
	return points, nil
}

func readSigned(s string, pos int) (int64, int, error) {
	var u uint64
	for shift := uint(0); ; shift += 5 {
		if pos >= len(s) {
			return 0, pos, ErrTruncated
		}
		b := uint64(s[pos]) - 63
		pos++
		u |= (b & 0x1f) << shift
		if b < 0x20 {
			break
		}
	}
	if u&1 != 0 {
		return ^int64(u >> 1), pos, nil
	}
	return int64(u >> 1), pos, nil
}

// Length is the great-circle length of the path in meters.
func Length(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Thin drops vertices closer than minSpacing meters to the previously kept
// vertex. The first and last points are always kept, so a thinned path still
// starts and ends at the leg's stops. A non-positive spacing returns points.
func Thin(points []Point, minSpacing float64) []Point {
	if len(points) <= 2 || minSpacing <= 0 {
		return points
	}

	kept := make([]Point, 0, len(points))
	kept = append(kept, points[0])
	last := points[0]
	for _, p := range points[1 : len(points)-1] {
		if Distance(last, p) >= minSpacing {
			kept = append(kept, p)
			last = p
		}
	}
	return append(kept, points[len(points)-1])
}

// Distance is the haversine distance between a and b in meters.
func Distance(a, b Point) float64 {
	const rad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
