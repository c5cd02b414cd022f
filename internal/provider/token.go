package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/domain"
)

// TokenCache holds the provider's client-credentials token. The mutex is
// held across the exchange so concurrent callers share a single refresh.
type TokenCache struct {
	mu           sync.Mutex
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client

	token  string
	expiry time.Time
}

func NewTokenCache(cfg config.ProviderConfig) *TokenCache {
	return &TokenCache{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: cfg.Timeout()},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns the cached token while it is still valid and performs a
// credential exchange otherwise.
func (t *TokenCache) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiry) {
		return t.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrProviderAuth, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrProviderAuth, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderAuth)
	}

	t.token = tr.AccessToken
	// Expire ahead of the provider so an in-flight call never races the
	// real expiry.
	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	t.expiry = time.Now().Add(lifetime * 97 / 100)

	logrus.WithField("expires_in", tr.ExpiresIn).Debug("provider token refreshed")
	return t.token, nil
}

// Invalidate discards the cached token. Called after a 401 so the next
// caller performs a fresh exchange.
func (t *TokenCache) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}
