package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot/models"

	"donation_bot/internal/conversation"
)

func TestSenderSendMessageUsesHTMLWithoutPreview(t *testing.T) {
	fb := &fakeBot{}

	if err := NewSender(fb).SendMessage(context.Background(), 42, "<b>hi</b>"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	params := fb.messages[0]
	if params.ChatID != int64(42) || params.Text != "<b>hi</b>" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.ParseMode != models.ParseModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", params.ParseMode)
	}
	if params.LinkPreviewOptions == nil || params.LinkPreviewOptions.IsDisabled == nil || !*params.LinkPreviewOptions.IsDisabled {
		t.Fatalf("expected link preview to be disabled")
	}
}

func TestSenderSendInvoice(t *testing.T) {
	fb := &fakeBot{}

	err := NewSender(fb).SendInvoice(context.Background(), 42, "Donation", "Support the project", conversation.NewInvoice(25))
	if err != nil {
		t.Fatalf("SendInvoice returned error: %v", err)
	}

	params := fb.invoices[0]
	if params.ChatID != int64(42) || params.Title != "Donation" || params.Description != "Support the project" {
		t.Fatalf("unexpected invoice header %+v", params)
	}
	if params.Payload != "donation" || params.ProviderToken != "" || params.Currency != "XTR" {
		t.Fatalf("unexpected invoice terms %+v", params)
	}
	if len(params.Prices) != 1 || params.Prices[0].Label != "25 XTR" || params.Prices[0].Amount != 25 {
		t.Fatalf("expected one 25 XTR price, got %+v", params.Prices)
	}
}

func TestSenderAnswerPreCheckout(t *testing.T) {
	fb := &fakeBot{}
	s := NewSender(fb)

	if err := s.AnswerPreCheckout(context.Background(), "q1", true, "ignored"); err != nil {
		t.Fatalf("AnswerPreCheckout returned error: %v", err)
	}
	if err := s.AnswerPreCheckout(context.Background(), "q2", false, "no"); err != nil {
		t.Fatalf("AnswerPreCheckout returned error: %v", err)
	}

	if a := fb.answers[0]; a.PreCheckoutQueryID != "q1" || !a.OK || a.ErrorMessage != "" {
		t.Fatalf("unexpected approval %+v", a)
	}
	if a := fb.answers[1]; a.PreCheckoutQueryID != "q2" || a.OK || a.ErrorMessage != "no" {
		t.Fatalf("unexpected rejection %+v", a)
	}
}

func TestSenderWrapsErrors(t *testing.T) {
	fb := &fakeBot{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	s := NewSender(fb)

	if err := s.SendMessage(context.Background(), 1, "x"); !errors.Is(err, fb.sendErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := s.SendInvoice(context.Background(), 1, "t", "d", conversation.NewInvoice(1)); !errors.Is(err, fb.sendErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	var nilSender *Sender
	if err := nilSender.SendMessage(context.Background(), 1, "x"); err == nil {
		t.Fatalf("expected error for nil sender")
	}
}
