package trip

import "strings"

const stationSuffix = " Station"

// CleanStationName reduces free-text station input to the bare station name:
// anything after the first comma and from the first " Station" on is dropped.
//
//	"Central Station, Platform 1" -> "Central"
//	"Town Hall Station"           -> "Town Hall"
func CleanStationName(name string) string {
	name, _, _ = strings.Cut(name, ",")
	name, _, _ = strings.Cut(name, stationSuffix)
	return strings.TrimSpace(name)
}

func stripStationSuffix(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(strings.TrimSuffix(name, stationSuffix))
}
