package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// Seller mirrors the sellers table columns captured from the onboarding
// form. Insert-only: rows are never updated by this service.
type Seller struct {
	SellerID       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	SteCode        string    `json:"ste_code"`
	ContactName    string    `json:"contact_name"`
	Email          string    `json:"email"`
	PrimaryPhone   string    `json:"primary_phone"`
	SellerLogo     string    `json:"seller_logo,omitempty"`
	BusinessName   string    `json:"business_name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Zipcode        string    `json:"zipcode"`
	Country        string    `json:"country"`
	StoreType      string    `json:"store_type"`
	Comments       string    `json:"comments,omitempty"`
	WalmartAddress string    `json:"walmart_address"`
	CreatedAt      time.Time `json:"created_at"`
}

// WalmartReturnAddress composes the fixed-warehouse return address block
// printed on confirmations and emails.
func WalmartReturnAddress(sellerName, steCode string) string {
	name := strings.TrimSpace(sellerName)
	if name == "" {
		name = "Seller Name"
	}
	return fmt.Sprintf("%s - WMT Returns - STE-%s\n295 Whitehead Road\nHamilton NJ 08619", name, steCode)
}

// NextSteCode assigns the next sequential onboarding identifier:
// 9000 + number of existing sellers + 1.
func (s *Store) NextSteCode(ctx context.Context) (string, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM sellers`).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 9000+count+1), nil
}

func (s *Store) CreateSeller(ctx context.Context, sel Seller) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO sellers(seller_id,seller_name,ste_code,contact_name,email,primary_phone,seller_logo,business_name,address,city,state,zipcode,country,store_type,comments,walmart_address)
VALUES($1,$2,$3,$4,lower($5),$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`, sel.SellerID, sel.SellerName, sel.SteCode, sel.ContactName, sel.Email, sel.PrimaryPhone, nullable(sel.SellerLogo), sel.BusinessName, sel.Address, sel.City, sel.State, sel.Zipcode, sel.Country, sel.StoreType, nullable(sel.Comments), sel.WalmartAddress)
	return err
}

func (s *Store) GetSellerBySteCode(ctx context.Context, steCode string) (Seller, error) {
	var sel Seller
	var logo, comments *string
	err := s.DB.QueryRow(ctx, `
SELECT seller_id,seller_name,ste_code,contact_name,email,primary_phone,seller_logo,business_name,address,city,state,zipcode,country,store_type,comments,walmart_address,created_at
FROM sellers
WHERE ste_code=$1
`, steCode).Scan(&sel.SellerID, &sel.SellerName, &sel.SteCode, &sel.ContactName, &sel.Email, &sel.PrimaryPhone, &logo, &sel.BusinessName, &sel.Address, &sel.City, &sel.State, &sel.Zipcode, &sel.Country, &sel.StoreType, &comments, &sel.WalmartAddress, &sel.CreatedAt)
	if logo != nil {
		sel.SellerLogo = *logo
	}
	if comments != nil {
		sel.Comments = *comments
	}
	return sel, err
}

func (s *Store) RecordAuditEvent(ctx context.Context, sellerID, eventType string, payload []byte) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO seller_audit_events(seller_id,event_type,payload)
VALUES($1,$2,$3::jsonb)
`, nullable(sellerID), eventType, string(payload))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
