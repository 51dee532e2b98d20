package dropbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// OAuth 2.0 authorization-code flow against Dropbox, scoped to file
// requests. https://developers.dropbox.com/oauth-guide
const (
	defaultAuthorizeURL = "https://www.dropbox.com/oauth2/authorize"
	defaultTokenURL     = "https://api.dropbox.com/oauth2/token"

	authScopes = "file_requests.write file_requests.read files.metadata.write files.metadata.read"

	// Credentials expiring within this margin are proactively refreshed.
	refreshSafetyMargin = 5 * time.Minute
)

type Config struct {
	AppKey       string
	AppSecret    string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
}

// Coordinator drives the per-user token lifecycle: authorization URL,
// code-for-token exchange, proactive refresh, revocation. At most one
// refresh is in flight per user; concurrent callers share its result.
type Coordinator struct {
	cfg   Config
	store *TokenStore
	http  *http.Client
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time
}

func NewCoordinator(cfg Config, store *TokenStore, log zerolog.Logger) *Coordinator {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = defaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &Coordinator{
		cfg:   cfg,
		store: store,
		http:  &http.Client{Timeout: 15 * time.Second},
		log:   log,
		now:   time.Now,
	}
}

type stateEnvelope struct {
	UserID  string            `json:"user_id"`
	Context map[string]string `json:"context,omitempty"`
}

// EncodeState round-trips the user ID plus an opaque caller context
// through the provider's state parameter. The context is never validated
// or parsed here; it is payload for the caller's use after the callback.
func EncodeState(userID string, context map[string]string) string {
	b, _ := json.Marshal(stateEnvelope{UserID: userID, Context: context})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState inverts EncodeState. A state that does not decode is treated
// as a bare user ID, matching what older clients sent.
func DecodeState(state string) (string, map[string]string) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return state, nil
	}
	var env stateEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.UserID == "" {
		return state, nil
	}
	return env.UserID, env.Context
}

// AuthURL builds the provider's authorization endpoint URL, requesting
// offline access so a refresh token is issued.
func (c *Coordinator) AuthURL(userID string, context map[string]string) (string, error) {
	if strings.TrimSpace(c.cfg.AppKey) == "" {
		return "", fmt.Errorf("dropbox: app key is not configured")
	}
	params := url.Values{
		"client_id":         {c.cfg.AppKey},
		"redirect_uri":      {c.cfg.RedirectURI},
		"response_type":     {"code"},
		"scope":             {authScopes},
		"state":             {EncodeState(userID, context)},
		"token_access_type": {"offline"},
	}
	return c.cfg.AuthorizeURL + "?" + params.Encode(), nil
}

// Exchange trades an authorization code for a token, stores it keyed by
// userID, and returns it.
func (c *Coordinator) Exchange(ctx context.Context, code, userID string) (Token, error) {
	resp, err := c.postTokenForm(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.cfg.AppKey},
		"client_secret": {c.cfg.AppSecret},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI},
	})
	if err != nil {
		return Token{}, &ExchangeError{Detail: err.Error()}
	}
	tok := Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		AccountID:    resp.AccountID,
	}
	c.store.Set(userID, tok)
	return tok, nil
}

// ValidAccessToken returns a credential good for at least the safety
// margin, refreshing synchronously when needed. No internal retry: a
// failed refresh surfaces immediately as a re-authorize signal.
func (c *Coordinator) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	tok, ok := c.store.Get(userID)
	if !ok {
		return "", ErrNotAuthenticated
	}
	if c.now().Before(tok.ExpiresAt.Add(-refreshSafetyMargin)) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", &RefreshError{Detail: "no refresh token available"}
	}

	v, err, _ := c.group.Do(userID, func() (any, error) {
		return c.refresh(ctx, userID, tok.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	return v.(Token).AccessToken, nil
}

func (c *Coordinator) refresh(ctx context.Context, userID, refreshToken string) (Token, error) {
	resp, err := c.postTokenForm(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.cfg.AppKey},
		"client_secret": {c.cfg.AppSecret},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		var apiErr *ProviderAPIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			// The provider rejected the refresh token itself; the stored
			// credential is unusable and the user must re-authorize.
			c.store.Delete(userID)
		}
		return Token{}, &RefreshError{Detail: err.Error()}
	}
	tok := Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		AccountID:    resp.AccountID,
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	c.store.Set(userID, tok)
	c.log.Info().Str("user_id", userID).Time("expires_at", tok.ExpiresAt).Msg("access token refreshed")
	return tok, nil
}

// Revoke drops the user's credential unconditionally. Idempotent.
func (c *Coordinator) Revoke(userID string) {
	c.store.Delete(userID)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id"`
}

func (c *Coordinator) postTokenForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderAPIError{Status: resp.StatusCode, Summary: strings.TrimSpace(string(body))}
	}
	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
