package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseBearer(t *testing.T) {
	tok, ok := ParseBearer("Bearer abc123")
	if !ok || tok != "abc123" {
		t.Fatalf("expected parsed bearer token, got ok=%v token=%q", ok, tok)
	}
	if _, ok := ParseBearer("abc123"); ok {
		t.Fatal("expected parse failure without Bearer prefix")
	}
	if _, ok := ParseBearer("Bearer   "); ok {
		t.Fatal("expected parse failure for empty token")
	}
}

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 400, "BAD_REQUEST", "boom", nil)
	if rec.Code != 400 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var out struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.HasPrefix(out.RequestID, "req_") || out.Error.Code != "BAD_REQUEST" {
		t.Fatalf("unexpected error body: %+v", out)
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","extra":1}`))
	var dst struct {
		Name string `json:"name"`
	}
	if err := ReadJSON(req, &dst); err == nil {
		t.Fatal("expected unknown field rejection")
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf strings.Builder
	log := zerolog.New(&buf)
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(418)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/teapot", nil))
	if rec.Code != 418 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), `"path":"/teapot"`) {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}
