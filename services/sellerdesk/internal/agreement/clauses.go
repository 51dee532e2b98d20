package agreement

import (
	"regexp"
	"strings"
)

type clauseKind int

const (
	clauseTitle clauseKind = iota
	clauseSection
	clauseLabel
	clauseDetail
	clauseParagraph
	clauseBullet
	clauseGap
	clauseSignatures
)

// clause is one atomic unit of agreement content. Style is carried by the
// kind tag, decided here at template-authoring time, never inferred from
// the text at render time.
type clause struct {
	kind clauseKind
	text string
	gap  float64
}

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// substitute fills {{key}} placeholders from values. Unknown keys render
// as "N/A" so a sparse request still yields a complete document.
func substitute(text string, values map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		match := placeholderRE.FindStringSubmatch(m)
		if len(match) != 2 {
			return ""
		}
		if v, ok := values[match[1]]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return "N/A"
	})
}

// agreementClauses is the fixed clause sequence of the service agreement:
// parties, services, term, fees, liability, governing law, signatures.
// Only the marked placeholders vary per request.
var agreementClauses = []clause{
	{kind: clauseTitle, text: "SERVICE AGREEMENT"},
	{kind: clauseDetail, text: "Date: {{date}}"},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "PARTIES"},
	{kind: clauseLabel, text: "Service Provider:"},
	{kind: clauseDetail, text: "3PL Vision"},
	{kind: clauseDetail, text: "Email: info@3plvision.com"},
	{kind: clauseDetail, text: "Phone: +1 (555) 123-4567"},
	{kind: clauseGap, gap: 15},
	{kind: clauseLabel, text: "Client:"},
	{kind: clauseDetail, text: "Business Name: {{business_name}}"},
	{kind: clauseDetail, text: "Contact Person: {{seller_name}}"},
	{kind: clauseDetail, text: "Email: {{email}}"},
	{kind: clauseDetail, text: "STE Code: {{ste_code}}"},
	{kind: clauseDetail, text: "Address: {{address}}"},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "SERVICES"},
	{kind: clauseBullet, text: "Walmart Marketplace account setup and configuration"},
	{kind: clauseBullet, text: "Product catalog management and optimization"},
	{kind: clauseBullet, text: "Order processing and fulfillment coordination"},
	{kind: clauseBullet, text: "Inventory management and tracking"},
	{kind: clauseBullet, text: "Customer service and support"},
	{kind: clauseBullet, text: "Performance monitoring and reporting"},
	{kind: clauseBullet, text: "Compliance with Walmart marketplace policies"},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "TERM"},
	{kind: clauseParagraph, text: "This agreement shall commence on the date of execution and continue for a period of 12 months."},
	{kind: clauseParagraph, text: "Either party may terminate this agreement with 30 days written notice."},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "FEES"},
	{kind: clauseParagraph, text: "Payment terms: Monthly billing with net 30 days payment terms."},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "LIABILITY"},
	{kind: clauseParagraph, text: "The client agrees to provide accurate and complete information for service delivery."},
	{kind: clauseParagraph, text: "3PL Vision will maintain confidentiality of all client data and business information."},
	{kind: clauseParagraph, text: "The client is responsible for compliance with all applicable laws and regulations."},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "GOVERNING LAW"},
	{kind: clauseParagraph, text: "This agreement is governed by the laws of the State of Delaware, United States."},
	{kind: clauseGap, gap: 25},

	{kind: clauseSection, text: "SIGNATURES"},
	{kind: clauseSignatures},
}
