package agreement

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

const documentTitle = "3PL Vision - Service Agreement"

// Request carries the fields substituted into the agreement template. It is
// constructed once per generation call and never persisted here.
type Request struct {
	SellerName    string `json:"seller_name"`
	BusinessName  string `json:"business_name"`
	Email         string `json:"email"`
	SteCode       string `json:"ste_code"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`
	Country       string `json:"country"`
	SignatureData string `json:"signature_data"`
}

// Signed reports whether the submitter provided a captured signature.
func (r Request) Signed() bool { return strings.TrimSpace(r.SignatureData) != "" }

// Filename resolves the agreement filename pattern, with placeholders for
// missing seller name and STE code.
func (r Request) Filename() string {
	seller := strings.TrimSpace(r.SellerName)
	if seller == "" {
		seller = "Seller"
	}
	ste := strings.TrimSpace(r.SteCode)
	if ste == "" {
		ste = "XXXX"
	}
	return fmt.Sprintf("3PL-Agreement-%s-STE-%s.pdf", seller, ste)
}

// Validate runs presence and format checks before any generation work.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SellerName) == "" && strings.TrimSpace(r.BusinessName) == "" {
		return &ValidationError{Field: "seller_name", Reason: "seller_name or business_name is required"}
	}
	if e := strings.TrimSpace(r.Email); e != "" && !isSaneEmail(e) {
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	if ste := strings.TrimSpace(r.SteCode); ste != "" && !isSaneSteCode(ste) {
		return &ValidationError{Field: "ste_code", Reason: "must contain only letters, digits and dashes"}
	}
	return nil
}

func (r Request) templateValues(generatedAt time.Time) map[string]string {
	return map[string]string{
		"date":          generatedAt.Format("January 2, 2006"),
		"business_name": strings.TrimSpace(r.BusinessName),
		"seller_name":   strings.TrimSpace(r.SellerName),
		"email":         strings.TrimSpace(r.Email),
		"ste_code":      strings.TrimSpace(r.SteCode),
		"address":       r.fullAddress(),
	}
}

func (r Request) fullAddress() string {
	var parts []string
	for _, p := range []string{r.Address, r.City, strings.TrimSpace(strings.TrimSpace(r.State) + " " + strings.TrimSpace(r.Zipcode)), r.Country} {
		if v := strings.TrimSpace(p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func isSaneEmail(email string) bool {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(email)), "@")
	if len(parts) != 2 {
		return false
	}
	return parts[0] != "" && parts[1] != "" && strings.Contains(parts[1], ".")
}

func isSaneSteCode(ste string) bool {
	for _, c := range ste {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-':
		default:
			return false
		}
	}
	return true
}

// Generator produces the service agreement PDF. Stateless across calls
// apart from the read-only provider signature asset, so concurrent
// generations need no coordination.
type Generator struct {
	providerSignaturePath string
	log                   zerolog.Logger
	now                   func() time.Time
	compress              bool
}

func NewGenerator(providerSignaturePath string, log zerolog.Logger) *Generator {
	return &Generator{
		providerSignaturePath: providerSignaturePath,
		log:                   log,
		now:                   time.Now,
		compress:              true,
	}
}

// Generate renders the full clause sequence into a PDF and returns its
// bytes. The caller decides transport wrapping (raw stream vs base64
// envelope); no partial document is ever returned on error.
func (g *Generator) Generate(req Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	providerPNG, assetErr := g.loadProviderSignature()
	if assetErr != nil {
		if req.Signed() {
			// The counter-party raster is mandatory on a signed agreement.
			return nil, assetErr
		}
		g.log.Warn().Err(assetErr).Msg("provider signature asset unavailable; using placeholder")
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetTitle(documentTitle, true)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(g.compress)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	pf := newPageFlow(doc, documentTitle)
	pf.tr = tr
	emb := &signatureEmbedder{
		doc:         doc,
		log:         g.log,
		generatedAt: g.now(),
		providerPNG: providerPNG,
	}

	values := req.templateValues(emb.generatedAt)
	for _, cl := range agreementClauses {
		g.drawClause(pf, emb, req, cl, values)
	}
	g.drawFooter(doc, tr)

	if doc.Err() {
		return nil, fmt.Errorf("agreement: render document: %w", doc.Error())
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("agreement: serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawClause(pf *pageFlow, emb *signatureEmbedder, req Request, cl clause, values map[string]string) {
	text := substitute(cl.text, values)
	switch cl.kind {
	case clauseTitle:
		pf.DrawParagraph(text, styleTitle, leftX, 24)
		pf.Gap(8)
	case clauseSection:
		pf.DrawParagraph(text, styleSection, leftX, 18)
		pf.Gap(7)
	case clauseLabel:
		pf.DrawParagraph(text, styleLabel, leftX, 20)
	case clauseDetail:
		pf.DrawParagraph(text, styleDetail, indentX, 15)
	case clauseParagraph:
		pf.DrawParagraph(text, styleBody, indentX, 15)
		pf.Gap(5)
	case clauseBullet:
		pf.DrawParagraph("• "+text, styleBody, indentX, 18)
	case clauseGap:
		pf.Gap(cl.gap)
	case clauseSignatures:
		g.drawSignatures(pf, emb, req)
	}
}

// drawSignatures places the two parties side by side on a dedicated page
// when a captured signature is present, or stacked on the shared page with
// a blank line when absent.
func (g *Generator) drawSignatures(pf *pageFlow, emb *signatureEmbedder, req Request) {
	if req.Signed() {
		pf.breakPage()
		bottom := pf.Advance(signatureBlockH)
		top := bottom - signatureBlockH + 12
		mid := pf.width/2 + 20
		emb.render(slotCounterParty, "Service Provider (3PL Vision):", "", leftX, top)
		emb.render(slotSubmitter, "Client:", req.SignatureData, mid, top)
		return
	}
	bottom := pf.Advance(signatureBlockH)
	emb.render(slotCounterParty, "Service Provider (3PL Vision):", "", leftX, bottom-signatureBlockH+12)
	pf.Gap(10)
	bottom = pf.Advance(signatureBlockH)
	emb.render(slotSubmitter, "Client:", "", leftX, bottom-signatureBlockH+12)
}

func (g *Generator) drawFooter(doc *fpdf.Fpdf, tr func(string) string) {
	w, h := doc.GetPageSize()
	doc.SetDrawColor(230, 230, 230)
	doc.SetLineWidth(1)
	doc.Line(leftX, h-footerY-20, w-leftX, h-footerY-20)
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(128, 128, 128)
	doc.Text(leftX, h-footerY, tr("This document is electronically generated and legally binding."))
}

// loadProviderSignature reads and validates the counter-party's static
// signature raster. Read once per generation call.
func (g *Generator) loadProviderSignature() ([]byte, error) {
	if strings.TrimSpace(g.providerSignaturePath) == "" {
		return nil, &AssetLoadError{Path: "(unset)", Err: fmt.Errorf("no asset path configured")}
	}
	raw, err := os.ReadFile(g.providerSignaturePath)
	if err != nil {
		return nil, &AssetLoadError{Path: g.providerSignaturePath, Err: err}
	}
	if _, err := png.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil, &AssetLoadError{Path: g.providerSignaturePath, Err: err}
	}
	return raw, nil
}
