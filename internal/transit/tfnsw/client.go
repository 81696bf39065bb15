// Package tfnsw implements the transit provider for the Transport for NSW
// Open Data trip planner and realtime vehicle position APIs.
package tfnsw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/provider/resilience"
	"github.com/gonsw/gonsw/internal/transit"
	"github.com/gonsw/gonsw/internal/trip"
)

const (
	// ProviderName identifies this transit provider.
	ProviderName = "tfnsw"

	// DefaultBaseURL is the TfNSW Open Data API base URL.
	DefaultBaseURL = "https://api.transport.nsw.gov.au"

	// DefaultVehicleFeed is the GTFS-realtime feed used for live positions.
	DefaultVehicleFeed = "sydneytrains"

	// apiVersion is the trip planner version the response shapes are written against.
	apiVersion = "10.2.1.42"

	// nearbyRadiusMeters bounds the nearest station search.
	nearbyRadiusMeters = 3000

	// metroDrawClass marks rail and metro stations among nearby points of interest.
	metroDrawClass = "CityM"

	defaultMaxJourneys = 10
)

// Modes excluded from trip planning: 4 light rail, 5 bus, 7 coach, 9 ferry, 11 school bus.
var excludedModes = []int{4, 5, 7, 9, 11}

// ClientConfig holds configuration for the TfNSW client.
type ClientConfig struct {
	// APIKey is the TfNSW Open Data API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the TfNSW API).
	BaseURL string

	// VehicleFeed selects the GTFS-realtime vehicle position feed (default: sydneytrains).
	VehicleFeed string

	// Location is the zone trip planner dates and times are expressed in (default: Australia/Sydney).
	Location *time.Location

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TfNSW API client.
type Client struct {
	apiKey      string
	baseURL     string
	vehicleFeed string
	loc         *time.Location
	httpClient  *resilience.Client
	logger      zerolog.Logger
}

var (
	_ transit.Provider    = (*Client)(nil)
	_ transit.VehicleFeed = (*Client)(nil)
)

// NewClient creates a new TfNSW client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	vehicleFeed := cfg.VehicleFeed
	if vehicleFeed == "" {
		vehicleFeed = DefaultVehicleFeed
	}

	loc := cfg.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(trip.DefaultTimezone); err != nil {
			loc = time.UTC
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		vehicleFeed: vehicleFeed,
		loc:         loc,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FindStop resolves a station name to its stop id.
func (c *Client) FindStop(ctx context.Context, name string) (*transit.Stop, error) {
	q := url.Values{}
	q.Set("outputFormat", "rapidJSON")
	q.Set("type_sf", "stop")
	q.Set("name_sf", name+" Station")
	q.Set("coordOutputFormat", "EPSG:4326")
	q.Set("TfNSWSF", "true")
	q.Set("version", apiVersion)

	var resp locationsResponse
	if err := c.getJSON(ctx, "/v1/tp/stop_finder", q, &resp); err != nil {
		return nil, err
	}

	if len(resp.Locations) == 0 {
		return nil, transit.ErrStationNotFound
	}

	loc := resp.Locations[0]
	id := loc.ID
	if loc.Properties != nil && loc.Properties.StopID != "" {
		id = loc.Properties.StopID
	}
	if id == "" {
		return nil, transit.ErrStationNotFound
	}

	stop := &transit.Stop{ID: id, Name: loc.Name}
	if len(loc.Coord) >= 2 {
		stop.Lat, stop.Lon = loc.Coord[0], loc.Coord[1]
	}
	return stop, nil
}

// NearestStation returns the closest rail or metro station within 3km.
func (c *Client) NearestStation(ctx context.Context, lat, lon float64) (*transit.NearbyStation, error) {
	q := url.Values{}
	q.Set("outputFormat", "rapidJSON")
	q.Set("coord", fmt.Sprintf("%s:%s:EPSG:4326", formatCoord(lon), formatCoord(lat)))
	q.Set("coordOutputFormat", "EPSG:4326")
	q.Set("inclFilter", "1")
	q.Set("type_1", "BUS_p")
	q.Set("radius_1", strconv.Itoa(nearbyRadiusMeters))
	q.Set("PoisOnMapMacro", "true")
	q.Set("version", apiVersion)

	var resp locationsResponse
	if err := c.getJSON(ctx, "/v1/tp/coord", q, &resp); err != nil {
		return nil, err
	}

	stations := make([]location, 0, len(resp.Locations))
	for _, l := range resp.Locations {
		if l.Properties != nil && l.Properties.DrawClass == metroDrawClass {
			stations = append(stations, l)
		}
	}
	if len(stations) == 0 {
		return nil, transit.ErrNoStationNearby
	}

	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].Properties.Distance < stations[j].Properties.Distance
	})

	nearest := stations[0]
	return &transit.NearbyStation{
		ID:             nearest.ID,
		Name:           nearest.Name,
		DistanceMeters: int(nearest.Properties.Distance),
	}, nil
}

// PlanTrip returns candidate journeys departing at or after req.DepartAt.
func (c *Client) PlanTrip(ctx context.Context, req transit.PlanRequest) ([]*trip.RawJourney, error) {
	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = time.Now()
	}
	departAt = departAt.In(c.loc)

	maxJourneys := req.MaxJourneys
	if maxJourneys <= 0 {
		maxJourneys = defaultMaxJourneys
	}

	q := url.Values{}
	q.Set("outputFormat", "rapidJSON")
	q.Set("coordOutputFormat", "EPSG:4326")
	q.Set("depArrMacro", "dep")
	q.Set("itdDate", departAt.Format("20060102"))
	q.Set("itdTime", departAt.Format("1504"))
	q.Set("type_origin", "any")
	q.Set("name_origin", req.OriginID)
	q.Set("type_destination", "any")
	q.Set("name_destination", req.DestinationID)
	q.Set("calcNumberOfTrips", strconv.Itoa(maxJourneys))
	q.Set("wheelchair", "on")
	q.Set("excludedMeans", "checkbox")
	for _, mode := range excludedModes {
		q.Set("exclMOT_"+strconv.Itoa(mode), "1")
	}
	q.Set("TfNSWTR", "true")
	q.Set("version", apiVersion)
	q.Set("itOptionsActive", "1")
	q.Set("onlyITBicycle", "0")
	q.Set("cycleSpeed", "16")

	var resp trip.RawResponse
	if err := c.getJSON(ctx, "/v1/tp/trip", q, &resp); err != nil {
		return nil, err
	}

	if resp.Journeys == nil {
		c.logger.Warn().
			Str("origin", req.OriginID).
			Str("destination", req.DestinationID).
			Msg("trip response has no journeys")
		return []*trip.RawJourney{}, nil
	}

	return resp.Journeys, nil
}

// getJSON performs an authenticated GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.get(ctx, path, query, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// get performs an authenticated GET and checks the status code.
// The caller must close the body.
func (c *Client) get(ctx context.Context, path string, query url.Values, accept string) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Accept", accept)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// TfNSW API response structures.

type locationsResponse struct {
	Version   string     `json:"version"`
	Locations []location `json:"locations"`
}

type location struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	Coord      []float64           `json:"coord"`
	IsBest     bool                `json:"isBest"`
	Properties *locationProperties `json:"properties"`
}

type locationProperties struct {
	StopID    string        `json:"stopId"`
	DrawClass string        `json:"GIS_DRAW_CLASS"`
	Distance  flexibleFloat `json:"distance"`
}

// flexibleFloat accepts both JSON numbers and numeric strings.
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unquoted
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing number %q: %w", s, err)
	}
	*f = flexibleFloat(v)
	return nil
}
