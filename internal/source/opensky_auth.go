package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	whttp "Warboard/pkg/http"
)

const (
	// Tokens are refreshed this long before their reported expiry.
	tokenRefreshMargin = 5 * time.Minute
	// After a failed token acquisition, auth attempts are suppressed
	// for this long and the adapter runs anonymously.
	authBlockWindow = 30 * time.Minute
)

var errAuthBlocked = errors.New("auth temporarily blocked")

// tokenSource manages the OpenSky OAuth2 client-credentials token. A
// failed acquisition blocks further auth attempts for authBlockWindow
// rather than retrying indefinitely.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *whttp.Client
	now          func() time.Time

	mu           sync.Mutex
	token        string
	expiresAt    time.Time
	blockedUntil time.Time
}

func newTokenSource(tokenURL, clientID, clientSecret string, client *whttp.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
		now:          time.Now,
	}
}

// enabled reports whether credentials are configured at all.
func (t *tokenSource) enabled() bool {
	return t.clientID != "" && t.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid bearer token, requesting a new one when the
// cached token is missing or near expiry.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Before(t.blockedUntil) {
		return "", errAuthBlocked
	}
	if t.token != "" && now.Before(t.expiresAt.Add(-tokenRefreshMargin)) {
		return t.token, nil
	}

	var resp tokenResponse
	err := t.client.SendAndParse(ctx, &whttp.RequestOptions{
		Method:  whttp.MethodPost,
		URL:     t.tokenURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body: map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     t.clientID,
			"client_secret": t.clientSecret,
		},
	}, &resp)
	if err != nil || resp.AccessToken == "" {
		// Likely blocked rather than transient, back off for a while.
		t.token = ""
		t.blockedUntil = now.Add(authBlockWindow)
		if err == nil {
			err = fmt.Errorf("token response missing access_token")
		}
		return "", fmt.Errorf("acquire token: %w", err)
	}

	t.token = resp.AccessToken
	t.expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token so the next Token call refreshes.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
