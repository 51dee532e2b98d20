package agreement

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

const (
	signatureImageW = 150
	signatureImageH = 50
	// Total vertical space one rendered signature block occupies: party
	// label, image or line, name/title label, date stamp.
	signatureBlockH = 130
)

type signatureSlot int

const (
	slotCounterParty signatureSlot = iota
	slotSubmitter
)

// signatureEmbedder draws one party's signature block at a fixed anchor.
// The counter-party always gets the provider's static raster regardless of
// input. The submitter gets their captured image, the "Digital Signature
// Applied" marker when the payload does not decode, or a blank line when
// nothing was captured. A date stamp from the generation time is always
// drawn beneath the signature region.
type signatureEmbedder struct {
	doc         *fpdf.Fpdf
	log         zerolog.Logger
	generatedAt time.Time
	providerPNG []byte
	imageSeq    int
}

func (e *signatureEmbedder) render(slot signatureSlot, partyLabel, providedImage string, x, y float64) {
	doc := e.doc
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(0, 0, 0)
	doc.Text(x, y, partyLabel)
	cursor := y + 20

	switch slot {
	case slotCounterParty:
		if len(e.providerPNG) > 0 {
			e.drawImage(e.providerPNG, x, cursor)
			cursor += signatureImageH + 15
		} else {
			doc.SetFont("Helvetica", "", 11)
			doc.Text(x, cursor, "Authorized Signature")
			cursor += 20
		}
		doc.SetFont("Helvetica", "", 11)
		doc.Text(x, cursor, "Authorized Signatory, 3PLVisions LLC")
		cursor += 20
	case slotSubmitter:
		if strings.TrimSpace(providedImage) == "" {
			doc.SetFont("Helvetica", "", 11)
			doc.Text(x, cursor, "Signature: _______________________")
			cursor += 20
			break
		}
		raw, err := decodeSignaturePNG(providedImage)
		if err != nil {
			// Decode failure is non-fatal: the document still completes
			// with a text marker in place of the image.
			e.log.Warn().Err(err).Msg("submitted signature did not decode; using text marker")
			doc.SetFont("Helvetica", "", 11)
			doc.Text(x, cursor, "Digital Signature Applied")
			cursor += 20
			break
		}
		e.drawImage(raw, x, cursor)
		cursor += signatureImageH + 15
	}

	doc.SetFont("Helvetica", "", 11)
	doc.Text(x, cursor, "Date: "+e.generatedAt.Format("January 2, 2006"))
}

func (e *signatureEmbedder) drawImage(raw []byte, x, y float64) {
	e.imageSeq++
	name := fmt.Sprintf("sig-%d", e.imageSeq)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	e.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	e.doc.ImageOptions(name, x, y, signatureImageW, signatureImageH, false, opts, 0, "")
}

// decodeSignaturePNG accepts either a bare base64 payload or the data-URL
// form produced by the capture canvas.
func decodeSignaturePNG(data string) ([]byte, error) {
	payload := strings.TrimSpace(data)
	if i := strings.Index(payload, "base64,"); i >= 0 {
		payload = payload[i+len("base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	if _, err := png.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	return raw, nil
}
