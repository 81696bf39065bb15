package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gonsw/gonsw/internal/transit"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJourneys(w io.Writer, result *transit.SearchResult) error {
	fmt.Fprintf(w, "%s -> %s\n", result.From.Name, result.To.Name)
	if result.Stale {
		fmt.Fprintf(w, "(provider unavailable, showing results from %s)\n", result.FetchedAt.Format(time.Kitchen))
	}
	if len(result.Journeys) == 0 {
		fmt.Fprintln(w, "no journeys found")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tDEPART\tARRIVE\tROUTE\tPLATFORM\tDURATION\tON TIME")
	for i, j := range result.Journeys {
		first, last := j.FirstLeg(), j.LastLeg()
		if first == nil {
			continue
		}

		durations := make([]string, 0, len(j.Legs))
		for _, leg := range j.Legs {
			durations = append(durations, leg.TravelTime)
		}

		onTime := "yes"
		if !last.OnTime {
			onTime = "no"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			first.DepartTime,
			last.ArrivalTime,
			strings.Join(j.RouteNos(), " > "),
			first.Platform,
			strings.Join(durations, " + "),
			onTime,
		)
	}
	return tw.Flush()
}

func writeStation(w io.Writer, s *transit.NearbyStation) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATION\tDISTANCE")
	fmt.Fprintf(tw, "%s\t%s\t%dm\n", s.ID, s.Name, s.DistanceMeters)
	return tw.Flush()
}

func writeVehicles(w io.Writer, positions []*transit.VehiclePosition) error {
	if len(positions) == 0 {
		fmt.Fprintln(w, "no vehicles reporting for this trip")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "VEHICLE\tLABEL\tLAT\tLON\tBEARING\tUPDATED")
	for _, p := range positions {
		updated := "-"
		if !p.Timestamp.IsZero() {
			updated = p.Timestamp.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\t%.0f\t%s\n", p.VehicleID, p.Label, p.Lat, p.Lon, p.Bearing, updated)
	}
	return tw.Flush()
}
