package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	InternalCopy string
}

// Attachment is one extra file packaged with the agreement email, e.g. a
// KYC document forwarded from the form.
type Attachment struct {
	Filename string
	Content  []byte
}

// AgreementEmail is everything needed to deliver a signed agreement to the
// seller and the internal copy recipient.
type AgreementEmail struct {
	SellerName     string
	SellerEmail    string
	SteCode        string
	WalmartAddress string
	AgreementPDF   []byte
	Attachments    []Attachment
}

type Mailer struct {
	cfg  Config
	log  zerolog.Logger
	send func(ctx context.Context, msgs ...*mail.Msg) error
	now  func() time.Time
}

func New(cfg Config, log zerolog.Logger) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: build smtp client: %w", err)
	}
	return &Mailer{
		cfg:  cfg,
		log:  log,
		send: client.DialAndSendWithContext,
		now:  time.Now,
	}, nil
}

// SendAgreement delivers the agreement PDF and any KYC attachments to the
// seller, plus a copy to the internal recipient when configured. Both
// messages go out over a single SMTP session.
func (m *Mailer) SendAgreement(ctx context.Context, e AgreementEmail) error {
	if strings.TrimSpace(e.SellerEmail) == "" {
		return fmt.Errorf("mailer: seller email is required")
	}
	if len(e.AgreementPDF) == 0 {
		return fmt.Errorf("mailer: agreement pdf is empty")
	}

	subject := fmt.Sprintf("3PL Warehousing Agreement - %s - STE-%s", e.SellerName, e.SteCode)

	sellerMsg, err := m.buildMessage(e.SellerEmail, subject, sellerBody(e, m.now()), e)
	if err != nil {
		return err
	}
	msgs := []*mail.Msg{sellerMsg}

	if m.cfg.InternalCopy != "" {
		copyMsg, err := m.buildMessage(m.cfg.InternalCopy, "[COPY] "+subject, internalCopyBody(e, m.now()), e)
		if err != nil {
			return err
		}
		msgs = append(msgs, copyMsg)
	}

	if err := m.send(ctx, msgs...); err != nil {
		return fmt.Errorf("mailer: send agreement: %w", err)
	}
	m.log.Info().Str("seller_email", e.SellerEmail).Str("ste_code", e.SteCode).Msg("agreement email sent")
	return nil
}

func (m *Mailer) buildMessage(to, subject, body string, e AgreementEmail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mailer: recipient %s: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	pdfName := fmt.Sprintf("3PL-Agreement-%s-STE-%s.pdf", e.SellerName, e.SteCode)
	if err := msg.AttachReader(pdfName, bytes.NewReader(e.AgreementPDF)); err != nil {
		return nil, fmt.Errorf("mailer: attach agreement: %w", err)
	}
	for _, a := range e.Attachments {
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Content)); err != nil {
			return nil, fmt.Errorf("mailer: attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}

// sellerBody renders the seller-facing HTML body. Interpolated fields are
// escaped individually; the markup itself is static.
func sellerBody(e AgreementEmail, now time.Time) string {
	name := html.EscapeString(e.SellerName)
	ste := html.EscapeString(e.SteCode)
	address := html.EscapeString(e.WalmartAddress)

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; font-size: 14px; color: #000000;">`)
	b.WriteString(`<h2 style="color: #2563eb;">3PL Warehousing Agreement</h2>`)
	fmt.Fprintf(&b, `<p>Dear %s,</p>`, name)
	b.WriteString(`<p>Thank you for completing the 3PL warehousing agreement. Please find attached your signed agreement document.</p>`)
	b.WriteString(`<p><strong>Agreement Details:</strong></p><ul>`)
	fmt.Fprintf(&b, `<li>Seller: %s</li>`, name)
	fmt.Fprintf(&b, `<li>STE Code: STE-%s</li>`, ste)
	fmt.Fprintf(&b, `<li>Date: %s</li>`, now.Format("1/2/2006"))
	b.WriteString(`</ul>`)
	b.WriteString(`<h3 style="color: #2563eb;">Walmart Return Address</h3>`)
	b.WriteString(`<p><strong>Please use this address for all your returns at walmart.com:</strong></p>`)
	fmt.Fprintf(&b, `<p style="white-space: pre-line;">%s</p>`, address)
	b.WriteString(`<p>This agreement is now in effect and covers the terms and conditions for our 3PL warehousing services.</p>`)
	b.WriteString(`<p>If you have any questions, please contact us at <a href="mailto:info@3plvision.com">info@3plvision.com</a></p>`)
	b.WriteString(`<p>Best regards,<br>3PLVisions LLC Team</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

func internalCopyBody(e AgreementEmail, now time.Time) string {
	name := html.EscapeString(e.SellerName)
	email := html.EscapeString(e.SellerEmail)
	ste := html.EscapeString(e.SteCode)
	address := html.EscapeString(e.WalmartAddress)

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; font-size: 14px; color: #000000;">`)
	b.WriteString(`<h2 style="color: #2563eb;">3PL Warehousing Agreement - Copy</h2>`)
	fmt.Fprintf(&b, `<p>This is a copy of the agreement sent to %s (%s)</p>`, name, email)
	b.WriteString(`<p><strong>Agreement Details:</strong></p><ul>`)
	fmt.Fprintf(&b, `<li>Seller: %s</li>`, name)
	fmt.Fprintf(&b, `<li>Email: %s</li>`, email)
	fmt.Fprintf(&b, `<li>STE Code: STE-%s</li>`, ste)
	fmt.Fprintf(&b, `<li>Date: %s</li>`, now.Format("1/2/2006"))
	b.WriteString(`</ul>`)
	b.WriteString(`<h3 style="color: #2563eb;">Walmart Return Address</h3>`)
	fmt.Fprintf(&b, `<p><strong>Return address for %s:</strong></p>`, name)
	fmt.Fprintf(&b, `<p style="white-space: pre-line;">%s</p>`, address)
	b.WriteString(`</div>`)
	return b.String()
}
