package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultAPIBaseURL = "https://api.dropboxapi.com/2"

// FileRequestResult is the discriminated outcome of KYC destination
// provisioning: either a real file request or, as fallback, a public
// shared link to the destination folder.
type FileRequestResult struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Destination string `json:"destination"`
	Type        string `json:"type"` // "file_request" | "shared_link"
}

// APIClient calls the storage provider's content APIs with a bearer
// access token obtained from the Coordinator.
type APIClient struct {
	BaseURL string
	HTTP    *http.Client
	Log     zerolog.Logger
}

func NewAPIClient(log zerolog.Logger) *APIClient {
	return &APIClient{
		BaseURL: defaultAPIBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Log:     log,
	}
}

var (
	unsafeSellerRE = regexp.MustCompile(`[^a-zA-Z0-9-_\s]`)
	unsafeSteRE    = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
)

// KYCTitle and KYCDestination derive the file-request naming from the
// seller identity, stripping characters the provider rejects in paths.
func KYCTitle(sellerName, steCode string) string {
	return fmt.Sprintf("KYC - %s - STE-%s", safeSeller(sellerName), safeSte(steCode))
}

func KYCDestination(parentFolder, sellerName, steCode string) string {
	return fmt.Sprintf("%s/%s-STE-%s", strings.TrimRight(parentFolder, "/"), safeSeller(sellerName), safeSte(steCode))
}

func safeSeller(name string) string {
	v := strings.TrimSpace(unsafeSellerRE.ReplaceAllString(name, ""))
	if v == "" {
		return "Seller"
	}
	return v
}

func safeSte(ste string) string {
	v := unsafeSteRE.ReplaceAllString(ste, "")
	if v == "" {
		return "XXXX"
	}
	return v
}

// CreateKYCFileRequest provisions an upload destination for the seller's
// KYC documents. A failed file-request creation falls back to a public
// shared link on the destination folder; only if that also fails does the
// original provider error surface.
func (c *APIClient) CreateKYCFileRequest(ctx context.Context, accessToken, title, destination string) (FileRequestResult, error) {
	// Folder pre-creation is best effort: 409 means it already exists and
	// anything else is diagnosed by the file-request call that follows.
	if err := c.createFolder(ctx, accessToken, destination); err != nil {
		c.Log.Debug().Err(err).Str("path", destination).Msg("folder pre-creation failed")
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	err := c.post(ctx, accessToken, "/file_requests/create", map[string]any{
		"title":       title,
		"destination": destination,
		"open":        true,
	}, &out)
	if err == nil {
		return FileRequestResult{
			ID:          out.ID,
			URL:         out.URL,
			Title:       title,
			Destination: destination,
			Type:        "file_request",
		}, nil
	}

	c.Log.Warn().Err(err).Msg("file request creation failed; trying shared link fallback")
	linkURL, linkErr := c.createSharedLink(ctx, accessToken, destination)
	if linkErr != nil {
		c.Log.Error().Err(linkErr).Msg("shared link fallback also failed")
		return FileRequestResult{}, err
	}
	return FileRequestResult{
		ID:          "shared-link",
		URL:         linkURL,
		Title:       title + " (Shared Link)",
		Destination: destination,
		Type:        "shared_link",
	}, nil
}

func (c *APIClient) createFolder(ctx context.Context, accessToken, path string) error {
	err := c.post(ctx, accessToken, "/files/create_folder_v2", map[string]any{
		"path":       path,
		"autorename": false,
	}, nil)
	var apiErr *ProviderAPIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return nil
	}
	return err
}

func (c *APIClient) createSharedLink(ctx context.Context, accessToken, path string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, accessToken, "/sharing/create_shared_link_with_settings", map[string]any{
		"path": path,
		"settings": map[string]any{
			"requested_visibility": "public",
			"audience":             "public",
			"access":               "viewer",
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *APIClient) post(ctx context.Context, accessToken, path string, body any, dst any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderAPIError{Status: resp.StatusCode, Summary: providerSummary(raw)}
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// providerSummary extracts the provider's error_summary field when the
// body is its usual JSON error shape, otherwise returns the raw text.
func providerSummary(body []byte) string {
	var e struct {
		ErrorSummary string `json:"error_summary"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorSummary != "" {
		return e.ErrorSummary
	}
	return strings.TrimSpace(string(body))
}
