package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
	"Warboard/pkg/util"
)

const firmsName = "firms"

const firmsSensor = "VIIRS_SNPP_NRT"

// Firms fetches NASA FIRMS thermal-anomaly detections. The upstream
// returns raw CSV whose column order is not contractual, so fields are
// resolved through a header-index lookup.
type Firms struct {
	baseURL  string
	mapKey   string
	dayRange int
	client   *whttp.Client
	pipe     *fetch.Pipeline[[]models.FireHotspot]
}

// NewFirms creates the FIRMS fire-hotspot adapter.
func NewFirms(cfg *config.Config, deps Deps) *Firms {
	sc := cfg.Sources.Firms
	return &Firms{
		baseURL:  sc.BaseURL,
		mapKey:   sc.MapKey,
		dayRange: sc.DayRange,
		client:   whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:     fetch.New[[]models.FireHotspot](firmsName, deps.options(sc.Source, nil, nil)),
	}
}

// Hotspots returns recent detections inside a bounding box given as
// "west,south,east,north".
func (f *Firms) Hotspots(ctx context.Context, area string) ([]models.FireHotspot, bool) {
	path := fmt.Sprintf("/api/area/csv/%s/%s/%s/%d", f.mapKey, firmsSensor, area, f.dayRange)
	key := fetch.Key(fmt.Sprintf("/api/area/csv/%s/%s/%d", firmsSensor, area, f.dayRange), nil)

	return f.pipe.Fetch(ctx, key, func(ctx context.Context) ([]models.FireHotspot, error) {
		var raw []byte
		err := f.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method: whttp.MethodGet,
			URL:    f.baseURL + path,
		}, &raw)
		if err != nil {
			return nil, err
		}

		hotspots, err := ParseFirmsCSV(raw)
		if err != nil {
			return nil, fetch.Malformed(err)
		}
		return hotspots, nil
	})
}

// ParseFirmsCSV parses the FIRMS area CSV into hotspot records using a
// header-index lookup for column positions.
func ParseFirmsCSV(raw []byte) ([]models.FireHotspot, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty csv body")
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"latitude", "longitude", "acq_date"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing csv column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]models.FireHotspot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		lat, latErr := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(row, "longitude"), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		h := models.FireHotspot{
			Latitude:   lat,
			Longitude:  lon,
			Brightness: util.ParseFloatDefault(field(row, "bright_ti4"), 0),
			Confidence: field(row, "confidence"),
			FRP:        util.ParseFloatDefault(field(row, "frp"), 0),
			DayNight:   field(row, "daynight"),
		}
		// acq_time is "HHMM" but drops leading zeros.
		acqTime := field(row, "acq_time")
		for len(acqTime) < 4 {
			acqTime = "0" + acqTime
		}
		if t, err := time.Parse("2006-01-02 1504", field(row, "acq_date")+" "+acqTime); err == nil {
			h.AcquiredAt = t.UTC()
		}
		out = append(out, h)
	}
	return out, nil
}
