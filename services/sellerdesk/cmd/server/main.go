package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/Premrshah/Walmart-WMS-3plvision/pkg/db"
	"github.com/Premrshah/Walmart-WMS-3plvision/pkg/httpx"
	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/agreement"
	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/dropbox"
	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/mailer"
	"github.com/Premrshah/Walmart-WMS-3plvision/services/sellerdesk/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type app struct {
	log        zerolog.Logger
	generator  *agreement.Generator
	oauth      *dropbox.Coordinator
	dropboxAPI *dropbox.APIClient

	// sellers and mail are nil when DATABASE_URL / SMTP_HOST are unset;
	// their endpoints answer 503 in that case.
	sellers *store.Store
	mail    *mailer.Mailer

	frontendURL     string
	kycParentFolder string
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sellerdesk").Logger()

	port := strings.TrimSpace(os.Getenv("SERVICE_PORT"))
	if port == "" {
		port = "8080"
	}
	signaturePath := strings.TrimSpace(os.Getenv("PROVIDER_SIGNATURE_PATH"))
	if signaturePath == "" {
		signaturePath = "assets/signature.png"
	}
	frontendURL := strings.TrimSpace(os.Getenv("FRONTEND_URL"))
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	kycParent := strings.TrimSpace(os.Getenv("KYC_PARENT_FOLDER"))
	if kycParent == "" {
		kycParent = "/KYC Documents"
	}

	tokens := dropbox.NewTokenStore()
	oauth := dropbox.NewCoordinator(dropbox.Config{
		AppKey:      strings.TrimSpace(os.Getenv("DROPBOX_APP_KEY")),
		AppSecret:   strings.TrimSpace(os.Getenv("DROPBOX_APP_SECRET")),
		RedirectURI: strings.TrimSpace(os.Getenv("DROPBOX_REDIRECT_URI")),
	}, tokens, log)

	a := &app{
		log:             log,
		generator:       agreement.NewGenerator(signaturePath, log),
		oauth:           oauth,
		dropboxAPI:      dropbox.NewAPIClient(log),
		frontendURL:     frontendURL,
		kycParentFolder: kycParent,
	}

	if strings.TrimSpace(os.Getenv("DATABASE_URL")) != "" {
		a.sellers = store.New(db.MustConnect())
	} else {
		log.Warn().Msg("DATABASE_URL not set; seller persistence disabled")
	}

	if host := strings.TrimSpace(os.Getenv("SMTP_HOST")); host != "" {
		m, err := mailer.New(mailer.Config{
			Host:         host,
			Port:         envIntDefault("SMTP_PORT", 587),
			Username:     strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
			Password:     os.Getenv("SMTP_PASSWORD"),
			From:         envStrDefault("MAIL_FROM", "info@3plvision.com"),
			InternalCopy: strings.TrimSpace(os.Getenv("MAIL_INTERNAL_COPY")),
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("smtp configuration invalid")
		}
		a.mail = m
	} else {
		log.Warn().Msg("SMTP_HOST not set; agreement email disabled")
	}

	log.Info().Str("port", port).Msg("sellerdesk listening")
	if err := http.ListenAndServe(":"+port, newRouter(a)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(a.log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/api", func(api chi.Router) {
		api.Post("/agreement/generate", a.handleGenerateAgreement)
		api.Post("/dropbox/auth", a.handleDropboxAuth)
		api.Get("/dropbox/callback", a.handleDropboxCallback)
		api.Post("/kyc/file-request", a.handleKYCFileRequest)
		api.Post("/email/send-agreement", a.handleSendAgreement)
		api.Post("/sellers", a.handleCreateSeller)
		api.Get("/sellers/{ste_code}", a.handleGetSeller)
	})
	return r
}

// handleGenerateAgreement answers in two modes: a raw PDF download when the
// request carries no signature, and a JSON envelope with a base64 data URL
// when it does.
func (a *app) handleGenerateAgreement(w http.ResponseWriter, r *http.Request) {
	var req agreement.Request
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	pdf, err := a.generator.Generate(req)
	if err != nil {
		var vErr *agreement.ValidationError
		if errors.As(err, &vErr) {
			httpx.WriteError(w, 400, "BAD_REQUEST", vErr.Error(), map[string]any{"field": vErr.Field})
			return
		}
		a.log.Error().Err(err).Msg("agreement generation failed")
		httpx.WriteError(w, 500, "PDF_ERROR", err.Error(), nil)
		return
	}

	filename := req.Filename()
	if req.Signed() {
		httpx.WriteJSON(w, 200, map[string]any{
			"success":    true,
			"pdf_base64": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
			"filename":   filename,
			"message":    "Signed agreement generated successfully",
		})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

func (a *app) handleDropboxAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string            `json:"user_id"`
		Context map[string]string `json:"context"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httpx.WriteError(w, 400, "BAD_REQUEST", "user_id is required", nil)
		return
	}
	authURL, err := a.oauth.AuthURL(strings.TrimSpace(req.UserID), req.Context)
	if err != nil {
		httpx.WriteError(w, 500, "CONFIG_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"auth_url": authURL})
}

// handleDropboxCallback finishes the authorization flow and, when the state
// carried form context, provisions the KYC upload destination before
// bouncing the browser back to the frontend.
func (a *app) handleDropboxCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if provErr := q.Get("error"); provErr != "" {
		a.redirectFrontend(w, r, url.Values{"dropbox_error": {provErr}})
		return
	}
	code := q.Get("code")
	if code == "" {
		a.redirectFrontend(w, r, url.Values{"dropbox_error": {"missing_code"}})
		return
	}
	userID, formCtx := dropbox.DecodeState(q.Get("state"))

	if _, err := a.oauth.Exchange(r.Context(), code, userID); err != nil {
		a.log.Error().Err(err).Str("user_id", userID).Msg("token exchange failed")
		a.redirectFrontend(w, r, url.Values{"dropbox_error": {"exchange_failed"}})
		return
	}

	params := url.Values{"dropbox_connected": {"true"}}
	if res, err := a.createKYCRequest(r.Context(), userID, formCtx["seller_name"], formCtx["ste_code"]); err != nil {
		a.log.Warn().Err(err).Str("user_id", userID).Msg("kyc file request failed after exchange")
		params.Set("kyc_error", "file_request_failed")
	} else {
		params.Set("kyc_upload_url", res.URL)
		params.Set("kyc_type", res.Type)
	}
	a.redirectFrontend(w, r, params)
}

func (a *app) handleKYCFileRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		SellerName string `json:"seller_name"`
		SteCode    string `json:"ste_code"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httpx.WriteError(w, 400, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	res, err := a.createKYCRequest(r.Context(), req.UserID, req.SellerName, req.SteCode)
	if err != nil {
		var refreshErr *dropbox.RefreshError
		if errors.Is(err, dropbox.ErrNotAuthenticated) || errors.As(err, &refreshErr) {
			authURL, authErr := a.oauth.AuthURL(req.UserID, map[string]string{
				"seller_name": req.SellerName,
				"ste_code":    req.SteCode,
			})
			if authErr != nil {
				httpx.WriteError(w, 500, "CONFIG_ERROR", authErr.Error(), nil)
				return
			}
			httpx.WriteJSON(w, 401, map[string]any{
				"error":         "dropbox authentication required",
				"requires_auth": true,
				"auth_url":      authURL,
			})
			return
		}
		a.log.Error().Err(err).Str("user_id", req.UserID).Msg("kyc file request failed")
		httpx.WriteError(w, 502, "DROPBOX_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"success": true, "file_request": res})
}

func (a *app) createKYCRequest(ctx context.Context, userID, sellerName, steCode string) (dropbox.FileRequestResult, error) {
	token, err := a.oauth.ValidAccessToken(ctx, userID)
	if err != nil {
		return dropbox.FileRequestResult{}, err
	}
	title := dropbox.KYCTitle(sellerName, steCode)
	destination := dropbox.KYCDestination(a.kycParentFolder, sellerName, steCode)
	return a.dropboxAPI.CreateKYCFileRequest(ctx, token, title, destination)
}

func (a *app) handleSendAgreement(w http.ResponseWriter, r *http.Request) {
	if a.mail == nil {
		httpx.WriteError(w, 503, "MAIL_DISABLED", "email delivery is not configured", nil)
		return
	}
	var req struct {
		SellerName  string `json:"seller_name"`
		SellerEmail string `json:"seller_email"`
		SteCode     string `json:"ste_code"`
		PDFBase64   string `json:"pdf_base64"`
		Attachments []struct {
			Filename      string `json:"filename"`
			ContentBase64 string `json:"content_base64"`
		} `json:"attachments"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.SellerEmail) == "" {
		httpx.WriteError(w, 400, "BAD_REQUEST", "seller_email is required", nil)
		return
	}
	pdf, err := decodeBase64Payload(req.PDFBase64)
	if err != nil || len(pdf) == 0 {
		httpx.WriteError(w, 400, "BAD_REQUEST", "pdf_base64 is missing or not valid base64", nil)
		return
	}

	email := mailer.AgreementEmail{
		SellerName:     req.SellerName,
		SellerEmail:    strings.TrimSpace(req.SellerEmail),
		SteCode:        req.SteCode,
		WalmartAddress: store.WalmartReturnAddress(req.SellerName, req.SteCode),
		AgreementPDF:   pdf,
	}
	for _, att := range req.Attachments {
		content, err := decodeBase64Payload(att.ContentBase64)
		if err != nil {
			httpx.WriteError(w, 400, "BAD_REQUEST", "attachment "+att.Filename+" is not valid base64", nil)
			return
		}
		email.Attachments = append(email.Attachments, mailer.Attachment{Filename: att.Filename, Content: content})
	}

	if err := a.mail.SendAgreement(r.Context(), email); err != nil {
		a.log.Error().Err(err).Str("seller_email", email.SellerEmail).Msg("agreement email failed")
		httpx.WriteError(w, 502, "MAIL_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"success": true})
}

func (a *app) handleCreateSeller(w http.ResponseWriter, r *http.Request) {
	if a.sellers == nil {
		httpx.WriteError(w, 503, "DB_DISABLED", "seller persistence is not configured", nil)
		return
	}
	var req struct {
		SellerName   string `json:"seller_name"`
		ContactName  string `json:"contact_name"`
		Email        string `json:"email"`
		PrimaryPhone string `json:"primary_phone"`
		SellerLogo   string `json:"seller_logo"`
		BusinessName string `json:"business_name"`
		Address      string `json:"address"`
		City         string `json:"city"`
		State        string `json:"state"`
		Zipcode      string `json:"zipcode"`
		Country      string `json:"country"`
		StoreType    string `json:"store_type"`
		Comments     string `json:"comments"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.SellerName) == "" || strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(w, 400, "BAD_REQUEST", "seller_name and email are required", nil)
		return
	}

	ste, err := a.sellers.NextSteCode(r.Context())
	if err != nil {
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	sel := store.Seller{
		SellerID:       "slr_" + uuid.NewString(),
		SellerName:     strings.TrimSpace(req.SellerName),
		SteCode:        ste,
		ContactName:    strings.TrimSpace(req.ContactName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		PrimaryPhone:   strings.TrimSpace(req.PrimaryPhone),
		SellerLogo:     strings.TrimSpace(req.SellerLogo),
		BusinessName:   strings.TrimSpace(req.BusinessName),
		Address:        strings.TrimSpace(req.Address),
		City:           strings.TrimSpace(req.City),
		State:          strings.TrimSpace(req.State),
		Zipcode:        strings.TrimSpace(req.Zipcode),
		Country:        strings.TrimSpace(req.Country),
		StoreType:      strings.TrimSpace(req.StoreType),
		Comments:       strings.TrimSpace(req.Comments),
		WalmartAddress: store.WalmartReturnAddress(req.SellerName, ste),
	}
	if err := a.sellers.CreateSeller(r.Context(), sel); err != nil {
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	b, _ := json.Marshal(map[string]any{"seller_id": sel.SellerID, "ste_code": sel.SteCode})
	_ = a.sellers.RecordAuditEvent(r.Context(), sel.SellerID, "SELLER_CREATED", b)

	httpx.WriteJSON(w, 201, map[string]any{
		"request_id": httpx.NewRequestID(),
		"seller":     sel,
	})
}

func (a *app) handleGetSeller(w http.ResponseWriter, r *http.Request) {
	if a.sellers == nil {
		httpx.WriteError(w, 503, "DB_DISABLED", "seller persistence is not configured", nil)
		return
	}
	steCode := strings.TrimSpace(chi.URLParam(r, "ste_code"))
	sel, err := a.sellers.GetSellerBySteCode(r.Context(), steCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, 404, "NOT_FOUND", "seller not found", nil)
			return
		}
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"seller":     sel,
	})
}

func (a *app) redirectFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, a.frontendURL+"?"+params.Encode(), http.StatusFound)
}

// decodeBase64Payload accepts both bare base64 and data-URL payloads.
func decodeBase64Payload(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if idx := strings.Index(data, "base64,"); idx >= 0 {
		data = data[idx+len("base64,"):]
	}
	if data == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(data)
}

func envStrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
