package telegram

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"donation_bot/internal/conversation"
	"donation_bot/internal/logging"
)

// Commands handled by the donation feature.
const (
	CommandDonate    = "donate"
	CommandDonations = "donations"
)

type donationFlow interface {
	Start(ctx context.Context, target conversation.Target) error
	StartWithOption(ctx context.Context, target conversation.Target, optionID int64) error
	HandleText(ctx context.Context, target conversation.Target, text string) (bool, error)
	Paid(ctx context.Context, target conversation.Target, payment conversation.Payment) error
	Rejection(locale string) string
}

type optionMenu interface {
	Show(ctx context.Context, target conversation.Target, purpose string) error
}

type preCheckoutAnswerer interface {
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
}

// RegisterDonations routes the donation commands, amount replies and payment
// updates to flow and menu.
func (c *Client) RegisterDonations(flow donationFlow, menu optionMenu) {
	c.registerDonations(flow, menu, c.Sender())
}

func (c *Client) registerDonations(flow donationFlow, menu optionMenu, answerer preCheckoutAnswerer) {
	c.bot.RegisterHandlerMatchFunc(matchCommand(CommandDonate), c.donateHandler(flow))
	c.bot.RegisterHandlerMatchFunc(matchCommand(CommandDonations), c.donationsHandler(menu))
	c.bot.RegisterHandlerMatchFunc(matchPlainText, c.textHandler(flow))
	c.bot.RegisterHandlerMatchFunc(matchPreCheckout, c.preCheckoutHandler(flow, answerer))
	c.bot.RegisterHandlerMatchFunc(matchSuccessfulPayment, c.paymentHandler(flow))

	c.logger.WithFields(logging.Fields{
		"event":    "telegram_handlers_registered",
		"commands": []string{CommandDonate, CommandDonations},
	}).Info("donation handlers registered")
}

func (c *Client) donateHandler(flow donationFlow) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		msg := update.Message
		target := c.target(ctx, msg)
		_, args := parseCommand(msg.Text)

		var err error
		if args == "" {
			err = flow.Start(ctx, target)
		} else {
			id, parseErr := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
			if parseErr != nil {
				id = 0
			}
			err = flow.StartWithOption(ctx, target, id)
		}
		c.logHandlerError(err, "donate", target, update.ID)
	}
}

func (c *Client) donationsHandler(menu optionMenu) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		msg := update.Message
		target := c.target(ctx, msg)
		_, purpose := parseCommand(msg.Text)

		c.logHandlerError(menu.Show(ctx, target, purpose), "donations", target, update.ID)
	}
}

func (c *Client) textHandler(flow donationFlow) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		msg := update.Message
		target := c.target(ctx, msg)

		handled, err := flow.HandleText(ctx, target, msg.Text)
		if err != nil {
			c.logHandlerError(err, "amount", target, update.ID)
			return
		}
		if !handled {
			c.logger.WithFields(logging.Context{
				UserID:   target.UserID,
				ChatID:   target.ChatID,
				UpdateID: update.ID,
				Event:    "telegram_text_ignored",
			}.Fields()).Debug("text outside of a dialogue")
		}
	}
}

func (c *Client) preCheckoutHandler(flow donationFlow, answerer preCheckoutAnswerer) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		query := update.PreCheckoutQuery
		ok := conversation.CheckPayment(query.InvoicePayload, query.Currency, int64(query.TotalAmount))

		reason := ""
		if !ok {
			reason = flow.Rejection("")
		}

		fields := logging.Fields{
			"event":    "telegram_pre_checkout",
			"payload":  query.InvoicePayload,
			"currency": query.Currency,
			"amount":   query.TotalAmount,
			"approved": ok,
		}

		if err := answerer.AnswerPreCheckout(ctx, query.ID, ok, reason); err != nil {
			c.logger.WithFields(fields).WithError(err).Error("failed to answer pre-checkout query")
			return
		}
		c.logger.WithFields(fields).Info("answered pre-checkout query")
	}
}

func (c *Client) paymentHandler(flow donationFlow) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		msg := update.Message
		target := c.target(ctx, msg)
		paid := msg.SuccessfulPayment

		err := flow.Paid(ctx, target, conversation.Payment{
			Payload:  paid.InvoicePayload,
			Currency: paid.Currency,
			Amount:   int64(paid.TotalAmount),
			ChargeID: paid.TelegramPaymentChargeID,
		})
		c.logHandlerError(err, "payment", target, update.ID)
	}
}

func (c *Client) target(ctx context.Context, msg *models.Message) conversation.Target {
	return conversation.Target{
		UserID: userID(msg.From),
		ChatID: chatID(&msg.Chat),
		Locale: c.locale(ctx, msg.From),
	}
}

func (c *Client) logHandlerError(err error, handler string, target conversation.Target, updateID int64) {
	if err == nil {
		return
	}

	c.logger.WithFields(logging.Context{
		UserID:   target.UserID,
		ChatID:   target.ChatID,
		UpdateID: updateID,
		Event:    "telegram_handler_failed",
	}.Fields()).WithField("handler", handler).WithError(err).Error("telegram handler failed")
}

func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		cmd, _ := parseCommand(update.Message.Text)
		return cmd == name
	}
}

// matchPlainText accepts any non-command message, including ones without
// text, so a sticker sent while an amount is expected is answered too.
func matchPlainText(update *models.Update) bool {
	if update == nil || update.Message == nil || update.Message.SuccessfulPayment != nil {
		return false
	}
	cmd, _ := parseCommand(update.Message.Text)
	return cmd == ""
}

func matchPreCheckout(update *models.Update) bool {
	return update != nil && update.PreCheckoutQuery != nil
}

func matchSuccessfulPayment(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.SuccessfulPayment != nil
}

// parseCommand splits "/donate@my_bot 5" into ("donate", "5"). Text that is
// not a command yields an empty name.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	head, args := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, args = head[:i], head[i:]
	}
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(args)
}
