package trip

import "strings"

// DefaultRouteColor is used for lines without a dedicated color.
const DefaultRouteColor = "#f99d1b"

var routeColors = map[string]string{
	"T1":  "#f99d1b",
	"T2":  "#0098cd",
	"T3":  "#f37021",
	"T4":  "#025aa3",
	"T5":  "#c4258f",
	"T6":  "#7c3e21",
	"T7":  "#6f818e",
	"T8":  "#00954c",
	"T9":  "#d11f2f",
	"CCN": "#d11f2f",
	"HUN": "#833134",
	"SCO": "#025aa3",
	"SHL": "#00954c",
	"M1":  "#158388",
}

// RouteColor returns the network color for a route label.
func RouteColor(routeNo string) string {
	if c, ok := routeColors[strings.ToUpper(strings.TrimSpace(routeNo))]; ok {
		return c
	}
	return DefaultRouteColor
}
