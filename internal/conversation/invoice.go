package conversation

import (
	"strconv"

	"donation_bot/internal/domain"
)

// Invoice message keys and the fixed payload tag of donation invoices.
const (
	InvoicePayload        = "donation"
	InvoiceTitleKey       = "donate.donation"
	InvoiceDescriptionKey = "donate.support_by_donating"
)

// LineItem is one priced row of an invoice, in the smallest currency unit.
type LineItem struct {
	Label  string
	Amount int64
}

// Invoice is a payable donation request. Stars invoices carry no provider token.
type Invoice struct {
	Payload       string
	ProviderToken string
	Currency      string
	Prices        []LineItem
}

// NewInvoice builds the single-line Stars invoice for amount.
func NewInvoice(amount int64) Invoice {
	return Invoice{
		Payload:       InvoicePayload,
		ProviderToken: "",
		Currency:      domain.CurrencyStars,
		Prices: []LineItem{{
			Label:  strconv.FormatInt(amount, 10) + " " + domain.CurrencyStars,
			Amount: amount,
		}},
	}
}

// Total sums the line items.
func (i Invoice) Total() int64 {
	var total int64
	for _, p := range i.Prices {
		total += p.Amount
	}
	return total
}

// CheckPayment decides a pre-checkout query. Only donation invoices in Stars
// with a positive amount are accepted.
func CheckPayment(payload, currency string, amount int64) bool {
	return payload == InvoicePayload && currency == domain.CurrencyStars && amount > 0
}
