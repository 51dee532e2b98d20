package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/agreement"
	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/dropbox"

	"github.com/rs/zerolog"
)

func testPNGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testApp(t *testing.T) *app {
	t.Helper()
	assetPath := filepath.Join(t.TempDir(), "signature.png")
	if err := os.WriteFile(assetPath, testPNGBytes(t), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	log := zerolog.Nop()
	return &app{
		log:       log,
		generator: agreement.NewGenerator(assetPath, log),
		oauth: dropbox.NewCoordinator(dropbox.Config{
			AppKey:      "app-key",
			AppSecret:   "app-secret",
			RedirectURI: "http://localhost:8080/api/dropbox/callback",
		}, dropbox.NewTokenStore(), log),
		dropboxAPI:      dropbox.NewAPIClient(log),
		frontendURL:     "http://localhost:3000",
		kycParentFolder: "/KYC Documents",
	}
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestGenerateAgreementDownloadMode(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/agreement/generate", map[string]any{
		"seller_name": "Acme Traders",
		"ste_code":    "9001",
	})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf stream, got %s", ct)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "3PL-Agreement-Acme Traders-STE-9001.pdf") {
		t.Fatalf("unexpected content disposition: %s", cd)
	}
	head := make([]byte, 4)
	if _, err := resp.Body.Read(head); err != nil || string(head) != "%PDF" {
		t.Fatalf("body is not a pdf: %q err=%v", head, err)
	}
}

func TestGenerateAgreementSignedEnvelope(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	sig := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNGBytes(t))
	resp := postJSON(t, ts, "/api/agreement/generate", map[string]any{
		"seller_name":    "Acme Traders",
		"ste_code":       "9001",
		"signature_data": sig,
	})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected json envelope, got %s", ct)
	}
	var out struct {
		Success   bool   `json:"success"`
		PDFBase64 string `json:"pdf_base64"`
		Filename  string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !out.Success {
		t.Fatal("expected success envelope")
	}
	const prefix = "data:application/pdf;base64,"
	if !strings.HasPrefix(out.PDFBase64, prefix) {
		t.Fatalf("unexpected data url prefix: %.40s", out.PDFBase64)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out.PDFBase64, prefix))
	if err != nil || !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Fatalf("envelope payload is not a pdf: %v", err)
	}
	if out.Filename != "3PL-Agreement-Acme Traders-STE-9001.pdf" {
		t.Fatalf("unexpected filename: %s", out.Filename)
	}
}

func TestGenerateAgreementValidationError(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/agreement/generate", map[string]any{"email": "owner@acme.test"})
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDropboxAuthReturnsURL(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/dropbox/auth", map[string]any{
		"user_id": "u1",
		"context": map[string]string{"seller_name": "Acme"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var out struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out.AuthURL, "client_id=app-key") || !strings.Contains(out.AuthURL, "token_access_type=offline") {
		t.Fatalf("unexpected auth url: %s", out.AuthURL)
	}
}

func TestKYCFileRequestUnauthenticated(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/kyc/file-request", map[string]any{
		"user_id":     "u1",
		"seller_name": "Acme Traders",
		"ste_code":    "9001",
	})
	defer resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var out struct {
		RequiresAuth bool   `json:"requires_auth"`
		AuthURL      string `json:"auth_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.RequiresAuth || out.AuthURL == "" {
		t.Fatalf("expected requires_auth with auth url, got %+v", out)
	}
}

func TestDropboxCallbackProviderErrorRedirects(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/api/dropbox/callback?error=access_denied")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "http://localhost:3000?") || !strings.Contains(loc, "dropbox_error=access_denied") {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestSellersEndpointsDisabledWithoutDB(t *testing.T) {
	ts := httptest.NewServer(newRouter(testApp(t)))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/sellers", map[string]any{"seller_name": "Acme", "email": "a@b.test"})
	defer resp.Body.Close()
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without database, got %d", resp.StatusCode)
	}
}

func TestDecodeBase64Payload(t *testing.T) {
	raw, err := decodeBase64Payload("data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	if err != nil || string(raw) != "hello" {
		t.Fatalf("data url decode failed: %q err=%v", raw, err)
	}
	raw, err = decodeBase64Payload(base64.StdEncoding.EncodeToString([]byte("hello")))
	if err != nil || string(raw) != "hello" {
		t.Fatalf("bare base64 decode failed: %q err=%v", raw, err)
	}
	if _, err := decodeBase64Payload("%%%"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if raw, err := decodeBase64Payload(""); err != nil || raw != nil {
		t.Fatalf("expected empty result for empty payload, got %q err=%v", raw, err)
	}
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("TEST_PORT_VALUE", "2525")
	if got := envIntDefault("TEST_PORT_VALUE", 587); got != 2525 {
		t.Fatalf("unexpected value: %d", got)
	}
	t.Setenv("TEST_PORT_VALUE", "not-a-number")
	if got := envIntDefault("TEST_PORT_VALUE", 587); got != 587 {
		t.Fatalf("expected default, got %d", got)
	}
}
