package domain

import "time"

// CurrencyStars is the Telegram Stars currency code; invoices in it need no payment provider.
const CurrencyStars = "XTR"

// DonationOption is a catalog entry a donor can pay towards.
type DonationOption struct {
	ID           int64        `bson:"_id" json:"id"`
	ConfessionID *int64       `bson:"confession_id" json:"confession_id"`
	BranchID     *int64       `bson:"branch_id" json:"branch_id"`
	Name         Translations `bson:"name" json:"name"`
	Description  Translations `bson:"description,omitempty" json:"description,omitempty"`
	Purpose      string       `bson:"purpose,omitempty" json:"purpose,omitempty"`
	MinAmount    int64        `bson:"min_amount" json:"min_amount"`
	MaxAmount    *int64       `bson:"max_amount" json:"max_amount"`
	Currency     string       `bson:"currency" json:"currency"`
	Emoji        string       `bson:"emoji,omitempty" json:"emoji,omitempty"`
	Active       bool         `bson:"active" json:"active"`
	Order        int          `bson:"order" json:"order"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}

// Title returns the localized name prefixed with the option emoji when set.
func (d DonationOption) Title(locale, fallback string) string {
	name := d.Name.Get(locale, fallback)
	if d.Emoji == "" {
		return name
	}
	return d.Emoji + " " + name
}

// Unbounded reports whether the option declares no upper amount.
func (d DonationOption) Unbounded() bool {
	return d.MaxAmount == nil
}
