package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"donation_bot/internal/conversation"
)

// Sender delivers dialogue output through the Bot API. Messages use HTML
// formatting with link previews disabled.
type Sender struct {
	api messageAPI
}

// NewSender wraps api.
func NewSender(api messageAPI) *Sender {
	return &Sender{api: api}
}

// SendMessage implements conversation.Messenger.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s == nil || s.api == nil {
		return errors.New("telegram sender is not initialized")
	}

	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendInvoice implements conversation.Messenger.
func (s *Sender) SendInvoice(ctx context.Context, chatID int64, title, description string, invoice conversation.Invoice) error {
	if s == nil || s.api == nil {
		return errors.New("telegram sender is not initialized")
	}

	prices := make([]models.LabeledPrice, 0, len(invoice.Prices))
	for _, p := range invoice.Prices {
		prices = append(prices, models.LabeledPrice{Label: p.Label, Amount: int(p.Amount)})
	}

	_, err := s.api.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         title,
		Description:   description,
		Payload:       invoice.Payload,
		ProviderToken: invoice.ProviderToken,
		Currency:      invoice.Currency,
		Prices:        prices,
	})
	if err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	return nil
}

// AnswerPreCheckout approves or declines a pre-checkout query.
func (s *Sender) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error {
	if s == nil || s.api == nil {
		return errors.New("telegram sender is not initialized")
	}

	params := &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
	}
	if !ok {
		params.ErrorMessage = reason
	}

	if _, err := s.api.AnswerPreCheckoutQuery(ctx, params); err != nil {
		return fmt.Errorf("answer pre-checkout query: %w", err)
	}
	return nil
}
