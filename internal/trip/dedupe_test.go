package trip_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gonsw/gonsw/internal/trip"
)

func journey(dep, arr string, routes ...string) *trip.Journey {
	j := &trip.Journey{}
	for i, r := range routes {
		leg := &trip.Leg{RouteNo: r, DepartTime: "--:--", ArrivalTime: "--:--"}
		if i == 0 {
			leg.DepartTime = dep
		}
		if i == len(routes)-1 {
			leg.ArrivalTime = arr
		}
		j.Legs = append(j.Legs, leg)
	}
	return j
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	a := journey("08:00", "09:00", "T1", "T2")
	b := journey("08:00", "09:00", "T1", "T2")

	out := trip.Dedupe([]*trip.Journey{a, b})
	assert.Len(t, out, 1)
	assert.Same(t, a, out[0])
}

func TestDedupe_DistinctJourneysKept(t *testing.T) {
	tests := []struct {
		name  string
		other *trip.Journey
	}{
		{"different departure", journey("08:05", "09:00", "T1", "T2")},
		{"different arrival", journey("08:00", "09:05", "T1", "T2")},
		{"different route order", journey("08:00", "09:00", "T2", "T1")},
		{"extra leg", journey("08:00", "09:00", "T1", "T2", "T2")},
		{"fewer legs", journey("08:00", "09:00", "T1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := journey("08:00", "09:00", "T1", "T2")
			out := trip.Dedupe([]*trip.Journey{base, tt.other})
			assert.Len(t, out, 2)
		})
	}
}

func TestDedupe_SeparatorsDoNotCollide(t *testing.T) {
	a := journey("08:00", "09:00", "T1|T2")
	b := journey("08:00", "09:00", "T1", "T2")

	assert.Len(t, trip.Dedupe([]*trip.Journey{a, b}), 2)
}

func TestDedupe_PreservesOrder(t *testing.T) {
	a := journey("07:00", "08:00", "T1")
	b := journey("07:10", "08:10", "T2")
	c := journey("07:00", "08:00", "T1")
	d := journey("07:20", "08:20", "T3")

	out := trip.Dedupe([]*trip.Journey{a, b, c, d})
	assert.Equal(t, []*trip.Journey{a, b, d}, out)
}

func TestDedupe_DropsMalformed(t *testing.T) {
	valid := journey("08:00", "09:00", "T1")

	out := trip.Dedupe([]*trip.Journey{
		nil,
		{},
		{Legs: []*trip.Leg{}},
		{Legs: []*trip.Leg{nil}},
		{Legs: []*trip.Leg{{RouteNo: "T1"}, nil}},
		valid,
	})
	assert.Equal(t, []*trip.Journey{valid}, out)

	assert.Empty(t, trip.Dedupe(nil))
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []*trip.Journey{
		journey("08:00", "09:00", "T1", "T2"),
		journey("08:00", "09:00", "T1", "T2"),
		journey("08:10", "09:00", "T1", "T2"),
		nil,
		journey("08:10", "09:00", "T1", "T2"),
	}

	once := trip.Dedupe(in)
	twice := trip.Dedupe(once)
	assert.Equal(t, once, twice)
	assert.LessOrEqual(t, len(once), len(in))
	assert.Len(t, once, 2)
}

func TestDedupe_DoesNotMutateInput(t *testing.T) {
	a := journey("08:00", "09:00", "T1")
	b := journey("08:00", "09:00", "T1")
	in := []*trip.Journey{a, b}

	_ = trip.Dedupe(in)
	assert.Equal(t, []*trip.Journey{a, b}, in)
}

func TestNormalizeThenDedupe(t *testing.T) {
	n := newNormalizer()
	first := rawLeg("T1", "Central Station, Platform 1", "2024-05-01T08:00:00Z", "2024-05-01T09:00:00Z", 3600)
	second := rawLeg("T1", "Central Station, Platform 2", "2024-05-01T08:00:00Z", "2024-05-01T09:00:00Z", 3600)

	out := trip.Dedupe(n.Normalize([]*trip.RawJourney{
		{Legs: []*trip.RawLeg{first}},
		{Legs: []*trip.RawLeg{second}},
	}))
	assert.Len(t, out, 1)
	assert.Equal(t, "Platform 1", out[0].Legs[0].Platform)
}
