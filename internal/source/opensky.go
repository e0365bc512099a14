package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const openskyName = "opensky"

// region is a bounded query box. Authenticated queries cover three
// conflict-relevant regions in parallel, cheaper in API credits than
// one global query and better covered by receivers.
type region struct {
	name                       string
	laMin, laMax, loMin, loMax float64
}

var openskyRegions = []region{
	{"eastern-europe", 44.0, 56.0, 22.0, 40.0},
	{"middle-east", 12.0, 37.0, 34.0, 60.0},
	{"east-asia", 20.0, 30.0, 115.0, 125.0},
}

// OpenSky fetches live aircraft state vectors. Authentication follows a
// fallback chain: OAuth2 client credentials when configured, dropping
// to anonymous global queries when token acquisition fails or no
// credentials exist.
type OpenSky struct {
	baseURL string
	client  *whttp.Client
	tokens  *tokenSource
	status  *fetch.Registry
	pipe    *fetch.Pipeline[[]models.Aircraft]
}

// NewOpenSky creates the OpenSky aircraft adapter.
func NewOpenSky(cfg *config.Config, deps Deps) *OpenSky {
	sc := cfg.Sources.OpenSky
	// Anonymous OpenSky accounts get a small credit budget, pace the
	// regional burst instead of spending it in one tick.
	client := whttp.NewClient(whttp.WithTimeout(sc.Timeout()), whttp.WithRateLimit(4, 8))

	return &OpenSky{
		baseURL: sc.BaseURL,
		client:  client,
		tokens:  newTokenSource(sc.TokenURL, sc.ClientID, sc.ClientSecret, client),
		status:  deps.Status,
		pipe:    fetch.New[[]models.Aircraft](openskyName, deps.options(sc.Source, nil, nil)),
	}
}

// Aircraft returns current aircraft positions, deduplicated by ICAO24.
func (o *OpenSky) Aircraft(ctx context.Context) ([]models.Aircraft, bool) {
	return o.pipe.Fetch(ctx, "/api/states/all", o.produce)
}

func (o *OpenSky) produce(ctx context.Context) ([]models.Aircraft, error) {
	if !o.tokens.enabled() {
		o.setPremium(false)
		return o.fetchStates(ctx, "", nil)
	}

	token, err := o.tokens.Token(ctx)
	if err != nil || token == "" {
		// Auth unavailable or blocked, run anonymously.
		o.setPremium(false)
		return o.fetchStates(ctx, "", nil)
	}
	o.setPremium(true)

	aircraft, err := o.fetchRegions(ctx, token)
	if whttp.UpstreamStatus(err) == 401 {
		// Token rejected mid-request: force one refresh and retry.
		o.tokens.Invalidate()
		token, terr := o.tokens.Token(ctx)
		if terr != nil || token == "" {
			o.setPremium(false)
			return nil, err
		}
		return o.fetchRegions(ctx, token)
	}
	return aircraft, err
}

// fetchRegions queries each bounded region in parallel and merges the
// results, deduplicating aircraft seen in overlapping boxes.
func (o *OpenSky) fetchRegions(ctx context.Context, token string) ([]models.Aircraft, error) {
	var mu sync.Mutex
	merged := make(map[string]models.Aircraft)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range openskyRegions {
		r := r
		g.Go(func() error {
			states, err := o.fetchStates(gctx, token, map[string][]string{
				"lamin": {formatCoord(r.laMin)},
				"lamax": {formatCoord(r.laMax)},
				"lomin": {formatCoord(r.loMin)},
				"lomax": {formatCoord(r.loMax)},
			})
			if err != nil {
				return err
			}
			mu.Lock()
			for _, a := range states {
				merged[a.ICAO24] = a
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Aircraft, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	return out, nil
}

type openskyResponse struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

// fetchStates issues one /states/all query, authenticated when token is
// non-empty, and parses the positional state vectors.
func (o *OpenSky) fetchStates(ctx context.Context, token string, query map[string][]string) ([]models.Aircraft, error) {
	opts := &whttp.RequestOptions{
		Method:      whttp.MethodGet,
		URL:         o.baseURL + "/api/states/all",
		QueryParams: query,
	}
	if token != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + token}
	}

	var resp openskyResponse
	if err := o.client.SendAndParse(ctx, opts, &resp); err != nil {
		return nil, err
	}
	if resp.Time == 0 {
		return nil, fetch.Malformed(fmt.Errorf("time missing"))
	}

	out := make([]models.Aircraft, 0, len(resp.States))
	for _, s := range resp.States {
		a, ok := parseStateVector(s)
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// parseStateVector decodes one positional state array. Indexes follow
// the documented /states/all layout; null fields are tolerated.
func parseStateVector(s []interface{}) (models.Aircraft, bool) {
	if len(s) < 11 {
		return models.Aircraft{}, false
	}

	icao := asString(s[0])
	lon, lonOK := asFloat(s[5])
	lat, latOK := asFloat(s[6])
	if icao == "" || !lonOK || !latOK {
		return models.Aircraft{}, false
	}

	alt, _ := asFloat(s[7])
	velocity, _ := asFloat(s[9])
	heading, _ := asFloat(s[10])
	onGround, _ := s[8].(bool)

	return models.Aircraft{
		ICAO24:        icao,
		Callsign:      strings.TrimSpace(asString(s[1])),
		OriginCountry: asString(s[2]),
		Longitude:     lon,
		Latitude:      lat,
		AltitudeM:     alt,
		VelocityMS:    velocity,
		Heading:       heading,
		OnGround:      onGround,
	}, true
}

func (o *OpenSky) setPremium(premium bool) {
	if o.status == nil {
		return
	}
	if info, _ := o.status.Get(openskyName); info.UsingPremiumKey != premium {
		o.status.SetPremium(openskyName, premium)
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
