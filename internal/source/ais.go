package source

import (
	"context"
	"fmt"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const aisName = "ais"

// AIS fetches vessel positions from the Digitraffic marine API. The
// upstream serves GeoJSON point features keyed by MMSI.
type AIS struct {
	baseURL string
	client  *whttp.Client
	pipe    *fetch.Pipeline[[]models.Vessel]
}

// NewAIS creates the Digitraffic AIS adapter.
func NewAIS(cfg *config.Config, deps Deps) *AIS {
	sc := cfg.Sources.AIS
	return &AIS{
		baseURL: sc.BaseURL,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:    fetch.New[[]models.Vessel](aisName, deps.options(sc, nil, nil)),
	}
}

type aisResponse struct {
	Type     string `json:"type"`
	Features []struct {
		MMSI     int64 `json:"mmsi"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"` // lon, lat
		} `json:"geometry"`
		Properties struct {
			SOG               float64 `json:"sog"`
			COG               float64 `json:"cog"`
			Heading           float64 `json:"heading"`
			NavStat           int     `json:"navStat"`
			TimestampExternal int64   `json:"timestampExternal"`
		} `json:"properties"`
	} `json:"features"`
}

// Vessels returns current vessel positions.
func (a *AIS) Vessels(ctx context.Context) ([]models.Vessel, bool) {
	return a.pipe.Fetch(ctx, "/api/ais/v1/locations", func(ctx context.Context) ([]models.Vessel, error) {
		var resp aisResponse
		err := a.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method: whttp.MethodGet,
			URL:    a.baseURL + "/api/ais/v1/locations",
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.Type != "FeatureCollection" {
			return nil, fetch.Malformed(fmt.Errorf("unexpected type %q", resp.Type))
		}

		out := make([]models.Vessel, 0, len(resp.Features))
		for _, f := range resp.Features {
			if f.MMSI == 0 || len(f.Geometry.Coordinates) < 2 {
				continue
			}
			v := models.Vessel{
				MMSI:      f.MMSI,
				Longitude: f.Geometry.Coordinates[0],
				Latitude:  f.Geometry.Coordinates[1],
				SpeedKn:   f.Properties.SOG,
				Course:    f.Properties.COG,
				Heading:   f.Properties.Heading,
				NavStatus: f.Properties.NavStat,
			}
			if f.Properties.TimestampExternal > 0 {
				v.SeenAt = time.UnixMilli(f.Properties.TimestampExternal).UTC()
			}
			out = append(out, v)
		}
		return out, nil
	})
}
