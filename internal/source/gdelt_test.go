package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Warboard/internal/fetch"
	"Warboard/pkg/config"
)

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Airstrike hits fuel depot near the border", "airstrike"},
		{"Missile barrage reported overnight", "airstrike"},
		{"Drone swarm intercepted over the capital", "drone"},
		{"Ransomware group claims attack on rail operator", "cyber"},
		{"Warship transits strait amid tensions", "naval"},
		{"Troops mass along the northern front line", "ground"},
		{"IAEA warns over uranium enrichment levels", "nuclear"},
		{"Markets rally on rate cut hopes", "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyEvent(tt.title), tt.title)
	}
}

func gdeltConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.GDELT.BaseURL = baseURL
	cfg.Sources.GDELT.TTLSeconds = 90
	cfg.Sources.GDELT.CooldownSeconds = 120
	cfg.Sources.GDELT.TimeoutSeconds = 5
	cfg.Sources.GDELT.MaxRecords = 75
	return cfg
}

func TestGDELTEventsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"articles":[
			{"title":"Airstrike hits depot","url":"https://example.com/a","domain":"example.com","seendate":"20260830T120000Z","sourcecountry":"UA"},
			{"title":"Airstrike hits depot","url":"https://example.com/a","domain":"example.com","seendate":"20260830T120000Z","sourcecountry":"UA"},
			{"title":"Ransomware hits port operator","url":"https://example.com/b","domain":"example.com","seendate":"20260830T110000Z","sourcecountry":"NL"}
		]}`)
	}))
	defer srv.Close()

	g := NewGDELT(gdeltConfig(srv.URL), Deps{Status: fetch.NewRegistry()})

	events, ok := g.Events(context.Background())
	require.True(t, ok)
	require.Len(t, events, 2, "duplicate URLs must collapse")
	assert.Equal(t, "airstrike", events[0].Type)
	assert.Equal(t, "cyber", events[1].Type)
	assert.Equal(t, 2026, events[0].SeenAt.Year())
}

func TestGDELTNonJSONBodyTreatedAsFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// GDELT error pages come back with a 200 status.
		fmt.Fprint(w, "<html><body>quota exceeded</body></html>")
	}))
	defer srv.Close()

	reg := fetch.NewRegistry()
	g := NewGDELT(gdeltConfig(srv.URL), Deps{Status: reg})

	events, ok := g.Events(context.Background())
	assert.False(t, ok)
	assert.Empty(t, events)

	info, _ := reg.Get("gdelt")
	assert.Equal(t, fetch.StateError, info.State)

	// Malformed responses enter backoff like a rate limit.
	_, _ = g.Events(context.Background())
	assert.Equal(t, int32(1), hits.Load())
}
