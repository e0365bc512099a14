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

func openskyConfig(baseURL, tokenURL, clientID, clientSecret string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.OpenSky.BaseURL = baseURL
	cfg.Sources.OpenSky.TTLSeconds = 30
	cfg.Sources.OpenSky.CooldownSeconds = 120
	cfg.Sources.OpenSky.TimeoutSeconds = 5
	cfg.Sources.OpenSky.TokenURL = tokenURL
	cfg.Sources.OpenSky.ClientID = clientID
	cfg.Sources.OpenSky.ClientSecret = clientSecret
	return cfg
}

const openskyStatesBody = `{"time":1700000000,"states":[
	["4b1809","SWR193  ","Switzerland",1700000000,1700000000,8.55,47.45,11000.0,false,220.5,90.0,0.0,null,11500.0,"1000",false,0],
	["3c6444",null,"Germany",1700000000,1700000000,13.4,52.5,null,true,3.2,180.0,null,null,null,null,false,0]
]}`

func TestOpenSkyAnonymousWithoutCredentials(t *testing.T) {
	var sawAuth atomic.Bool
	var bounded atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			sawAuth.Store(true)
		}
		if r.URL.Query().Get("lamin") != "" {
			bounded.Add(1)
		}
		fmt.Fprint(w, openskyStatesBody)
	}))
	defer srv.Close()

	o := NewOpenSky(openskyConfig(srv.URL, "", "", ""), Deps{Status: fetch.NewRegistry()})

	aircraft, ok := o.Aircraft(context.Background())
	require.True(t, ok)
	require.Len(t, aircraft, 2)
	assert.False(t, sawAuth.Load())
	assert.Equal(t, int32(0), bounded.Load(), "anonymous access issues one global query")

	byICAO := map[string]bool{}
	for _, a := range aircraft {
		byICAO[a.ICAO24] = true
	}
	assert.True(t, byICAO["4b1809"])
	assert.True(t, byICAO["3c6444"])
}

func TestOpenSkyAuthenticatedQueriesRegions(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":1800}`)
	}))
	defer tokenSrv.Close()

	var bounded atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		if r.URL.Query().Get("lamin") != "" {
			bounded.Add(1)
		}
		fmt.Fprint(w, openskyStatesBody)
	}))
	defer srv.Close()

	reg := fetch.NewRegistry()
	o := NewOpenSky(openskyConfig(srv.URL, tokenSrv.URL, "id", "secret"), Deps{Status: reg})

	aircraft, ok := o.Aircraft(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(3), bounded.Load(), "authenticated access queries each region")
	require.Len(t, aircraft, 2, "overlapping regions dedupe by ICAO24")

	info, found := reg.Get("opensky")
	require.True(t, found)
	assert.True(t, info.UsingPremiumKey)
}

func TestOpenSkyTokenFailureFallsBackAnonymous(t *testing.T) {
	// Token endpoint that is unreachable simulates a blocked auth path.
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadSrv.Close()

	var bounded atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.URL.Query().Get("lamin") != "" {
			bounded.Add(1)
		}
		fmt.Fprint(w, openskyStatesBody)
	}))
	defer srv.Close()

	reg := fetch.NewRegistry()
	o := NewOpenSky(openskyConfig(srv.URL, deadSrv.URL, "id", "secret"), Deps{Status: reg})

	aircraft, ok := o.Aircraft(context.Background())
	require.True(t, ok)
	require.Len(t, aircraft, 2)
	assert.Equal(t, int32(0), bounded.Load())

	info, found := reg.Get("opensky")
	require.True(t, found)
	assert.False(t, info.UsingPremiumKey)

	// Auth attempts stay suppressed for the block window.
	_, err := o.tokens.Token(context.Background())
	assert.ErrorIs(t, err, errAuthBlocked)
}

func TestOpenSky401RefreshesTokenOnce(t *testing.T) {
	var tokenHits atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := tokenHits.Add(1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1800}`, n)
	}))
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			http.Error(w, "token expired", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, openskyStatesBody)
	}))
	defer srv.Close()

	o := NewOpenSky(openskyConfig(srv.URL, tokenSrv.URL, "id", "secret"), Deps{Status: fetch.NewRegistry()})

	aircraft, ok := o.Aircraft(context.Background())
	require.True(t, ok)
	require.Len(t, aircraft, 2)
	assert.Equal(t, int32(2), tokenHits.Load(), "401 forces exactly one token refresh")
}

func TestParseStateVectorToleratesNulls(t *testing.T) {
	a, ok := parseStateVector([]interface{}{
		"abc123", nil, "France", nil, nil, 2.35, 48.86, nil, nil, nil, nil,
	})
	require.True(t, ok)
	assert.Equal(t, "abc123", a.ICAO24)
	assert.Equal(t, 48.86, a.Latitude)
	assert.Equal(t, 0.0, a.AltitudeM)

	_, ok = parseStateVector([]interface{}{"abc123", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil})
	assert.False(t, ok, "missing position drops the row")
}
