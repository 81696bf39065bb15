package tfnsw

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/gonsw/gonsw/internal/transit"
)

// maxFeedBytes bounds the GTFS-realtime payload read into memory.
const maxFeedBytes = 32 << 20

// VehiclePositions fetches the GTFS-realtime vehicle position feed.
// Entities without a position are skipped.
func (c *Client) VehiclePositions(ctx context.Context) ([]*transit.VehiclePosition, error) {
	resp, err := c.get(ctx, "/v2/gtfs/vehiclepos/"+c.vehicleFeed, nil, "application/x-google-protobuf")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	positions := make([]*transit.VehiclePosition, 0, len(feed.GetEntity()))
	for _, entity := range feed.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}

		vp := entity.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}

		pos := vp.GetPosition()
		p := &transit.VehiclePosition{
			TripID:    vp.GetTrip().GetTripId(),
			StopID:    vp.GetStopId(),
			VehicleID: vp.GetVehicle().GetId(),
			Label:     vp.GetVehicle().GetLabel(),
			Lat:       float64(pos.GetLatitude()),
			Lon:       float64(pos.GetLongitude()),
			Bearing:   pos.GetBearing(),
		}
		if ts := vp.GetTimestamp(); ts > 0 {
			p.Timestamp = time.Unix(int64(ts), 0).UTC()
		}
		positions = append(positions, p)
	}

	c.logger.Debug().
		Str("feed", c.vehicleFeed).
		Int("entities", len(feed.GetEntity())).
		Int("positions", len(positions)).
		Msg("vehicle positions fetched")

	return positions, nil
}
