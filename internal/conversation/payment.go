package conversation

import (
	"context"
	"fmt"
	"strconv"

	"donation_bot/internal/logging"
)

// Payment message keys and metric name.
const (
	KeyThanks          = "donate.thanks"
	KeyPaymentRejected = "donate.payment_rejected"
	EventPaid          = "donate.paid"
)

// Payment is a completed Stars payment reported by Telegram.
type Payment struct {
	Payload  string
	Currency string
	Amount   int64
	ChargeID string
}

// Paid thanks the donor and records the payment.
func (f *Flow) Paid(ctx context.Context, target Target, payment Payment) error {
	if err := f.validate(ctx, target); err != nil {
		return err
	}
	if payment.Payload != InvoicePayload {
		return fmt.Errorf("unexpected payment payload %q", payment.Payload)
	}

	f.logger.WithFields(logging.Fields{
		"event":     "donation_paid",
		"user_id":   target.UserID,
		"amount":    payment.Amount,
		"currency":  payment.Currency,
		"charge_id": payment.ChargeID,
	}).Info("donation received")

	if f.recorder != nil {
		f.recorder.Record(ctx, EventPaid, map[string]interface{}{
			"value":     payment.Amount,
			"currency":  payment.Currency,
			"charge_id": payment.ChargeID,
		})
	}

	return f.send(ctx, target, KeyThanks, map[string]string{"amount": strconv.FormatInt(payment.Amount, 10)})
}

// Rejection returns the localized reason for a declined pre-checkout query.
func (f *Flow) Rejection(locale string) string {
	if f == nil || f.translator == nil {
		return KeyPaymentRejected
	}
	return f.translator.T(f.locale(Target{Locale: locale}), KeyPaymentRejected, nil)
}
