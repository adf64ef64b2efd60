// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/config"
	"donation_bot/internal/logging"
)

type messageAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
}

type botAPI interface {
	messageAPI
	Start(ctx context.Context)
	ProcessUpdate(ctx context.Context, upd *models.Update)
	RegisterHandlerMatchFunc(matchFunc bot.MatchFunc, f bot.HandlerFunc, m ...bot.Middleware) string
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
}

type userRegistrar interface {
	EnsureUser(ctx context.Context, userID int64, languageCode string) (bool, error)
}

type languageLookup interface {
	LanguageOf(ctx context.Context, userID int64) (string, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
		"pre_checkout_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Option customizes the Client.
type Option func(*Client)

// WithUserRegistrar records every sender in the users collection.
func WithUserRegistrar(r userRegistrar) Option {
	return func(c *Client) {
		c.users = r
	}
}

// WithLanguageLookup resolves a stored language when an update carries none.
func WithLanguageLookup(l languageLookup) Option {
	return func(c *Client) {
		c.languages = l
	}
}

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot       botAPI
	logger    *logrus.Entry
	users     userRegistrar
	languages languageLookup
}

// NewClient initializes the Telegram bot with the default handlers and the
// raw update logging middleware.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(defaultHandler(logger)),
		bot.WithErrorsHandler(errorHandler(logger)),
		bot.WithMiddlewares(rawUpdateLogger(logger), client.registerSender),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	return client, nil
}

// Sender returns the outbound adapter used by the donation dialogue.
func (c *Client) Sender() *Sender {
	return NewSender(c.bot)
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// ProcessUpdate dispatches one update received through the webhook.
func (c *Client) ProcessUpdate(ctx context.Context, update *models.Update) {
	if update == nil {
		return
	}
	c.bot.ProcessUpdate(ctx, update)
}

// SetWebhook registers url with Telegram. A non-empty secret is echoed back
// by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("webhook url is required")
	}

	if _, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: defaultAllowedUpdates,
	}); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"event": "telegram_webhook_set",
		"url":   url,
	}).Info("telegram webhook registered")
	return nil
}

// DeleteWebhook switches the bot back to polling delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if _, err := c.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// registerSender upserts the sender of each update before dispatch. A failed
// upsert is logged and does not block the update.
func (c *Client) registerSender(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if c.users != nil && update != nil {
			if from := sender(update); from != nil && from.ID != 0 {
				if _, err := c.users.EnsureUser(ctx, from.ID, from.LanguageCode); err != nil {
					c.logger.WithFields(logging.Fields{
						"event":   "user_register_failed",
						"user_id": from.ID,
					}).WithError(err).Warn("failed to register user")
				}
			}
		}
		next(ctx, b, update)
	}
}

// locale picks the language for replies to user.
func (c *Client) locale(ctx context.Context, user *models.User) string {
	if user == nil {
		return ""
	}
	if user.LanguageCode != "" {
		return user.LanguageCode
	}
	if c.languages == nil {
		return ""
	}

	lang, err := c.languages.LanguageOf(ctx, user.ID)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "user_language_lookup_failed",
			"user_id": user.ID,
		}).WithError(err).Warn("failed to load user language")
		return ""
	}
	return lang
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func defaultHandler(logger *logrus.Entry) bot.HandlerFunc {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if update == nil {
			return
		}

		meta := extractUpdateMeta(update)

		fields := logging.Fields{
			"event":       "telegram_update",
			"update_type": meta.updateType,
		}

		if meta.text != "" {
			fields["text"] = meta.text
		}
		if meta.userID != 0 {
			fields["user_id"] = meta.userID
		}
		if meta.chatID != 0 {
			fields["chat_id"] = meta.chatID
		}

		logger.WithFields(fields).Info("telegram update received")
	}
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.EditedMessage != nil:
		return updateMeta{
			userID:     userID(update.EditedMessage.From),
			chatID:     chatID(&update.EditedMessage.Chat),
			text:       strings.TrimSpace(update.EditedMessage.Text),
			updateType: "edited_message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	case update.PreCheckoutQuery != nil:
		return updateMeta{
			text:       update.PreCheckoutQuery.InvoicePayload,
			updateType: "pre_checkout_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func sender(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.EditedMessage != nil:
		return update.EditedMessage.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	default:
		return nil
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}
