package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

func testMailer(internalCopy string, sent *[]*mail.Msg) *Mailer {
	return &Mailer{
		cfg: Config{From: "info@3plvision.com", InternalCopy: internalCopy},
		log: zerolog.Nop(),
		send: func(ctx context.Context, msgs ...*mail.Msg) error {
			*sent = append(*sent, msgs...)
			return nil
		},
		now: func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
	}
}

func testEmail() AgreementEmail {
	return AgreementEmail{
		SellerName:     "Acme Traders",
		SellerEmail:    "owner@acme.test",
		SteCode:        "9001",
		WalmartAddress: "Acme Traders - WMT Returns - STE-9001\n295 Whitehead Road\nHamilton NJ 08619",
		AgreementPDF:   []byte("%PDF-1.4 test"),
		Attachments:    []Attachment{{Filename: "kyc.pdf", Content: []byte("doc")}},
	}
}

func TestSendAgreementWithInternalCopy(t *testing.T) {
	var sent []*mail.Msg
	m := testMailer("ops@3plvision.com", &sent)
	if err := m.SendAgreement(context.Background(), testEmail()); err != nil {
		t.Fatalf("SendAgreement error: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected seller message plus internal copy, got %d", len(sent))
	}
	if got := sent[0].GetGenHeader(mail.HeaderSubject); len(got) == 0 || !strings.Contains(got[0], "STE-9001") {
		t.Fatalf("unexpected seller subject: %v", got)
	}
	if got := sent[1].GetGenHeader(mail.HeaderSubject); len(got) == 0 || !strings.HasPrefix(got[0], "[COPY]") {
		t.Fatalf("unexpected copy subject: %v", got)
	}
}

func TestSendAgreementWithoutInternalCopy(t *testing.T) {
	var sent []*mail.Msg
	m := testMailer("", &sent)
	if err := m.SendAgreement(context.Background(), testEmail()); err != nil {
		t.Fatalf("SendAgreement error: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected a single message, got %d", len(sent))
	}
}

func TestSendAgreementValidation(t *testing.T) {
	var sent []*mail.Msg
	m := testMailer("", &sent)

	e := testEmail()
	e.SellerEmail = "  "
	if err := m.SendAgreement(context.Background(), e); err == nil {
		t.Fatal("expected error without seller email")
	}

	e = testEmail()
	e.AgreementPDF = nil
	if err := m.SendAgreement(context.Background(), e); err == nil {
		t.Fatal("expected error without pdf bytes")
	}
	if len(sent) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(sent))
	}
}

func TestSellerBodyEscapesFields(t *testing.T) {
	e := testEmail()
	e.SellerName = `<script>alert("x")</script>`
	body := sellerBody(e, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if strings.Contains(body, "<script>") {
		t.Fatal("seller name not escaped")
	}
	if !strings.Contains(body, "STE-9001") {
		t.Fatal("expected ste code in body")
	}
	if !strings.Contains(body, "8/30/2026") {
		t.Fatal("expected formatted date in body")
	}
}
