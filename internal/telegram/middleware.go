package telegram

import (
	"context"
	"encoding/json"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/logging"
)

type rawUpdateKey struct{}

// WithRawUpdate attaches the undecoded webhook body to ctx so the update
// logger can print what Telegram actually sent.
func WithRawUpdate(ctx context.Context, raw []byte) context.Context {
	return context.WithValue(ctx, rawUpdateKey{}, raw)
}

func rawUpdateFrom(ctx context.Context) []byte {
	if ctx == nil {
		return nil
	}
	raw, _ := ctx.Value(rawUpdateKey{}).([]byte)
	return raw
}

// rawUpdateLogger logs each update payload with the sender id and the JSON
// type the id arrived as. It only does work at debug level.
func rawUpdateLogger(logger *logrus.Entry) bot.Middleware {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update != nil && logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
				logger.WithFields(rawUpdateFields(ctx, update)).Debug("raw telegram update")
			}
			next(ctx, b, update)
		}
	}
}

func rawUpdateFields(ctx context.Context, update *models.Update) logging.Fields {
	fields := logging.Fields{
		"event":     "telegram_raw_update",
		"update_id": update.ID,
	}

	raw := rawUpdateFrom(ctx)
	if raw != nil {
		fields["id_type"] = senderIDType(raw)
	} else {
		encoded, err := json.Marshal(update)
		if err != nil {
			fields["encode_error"] = err.Error()
		}
		raw = encoded
		fields["id_type"] = "number"
	}
	fields["raw"] = string(raw)

	if from := sender(update); from != nil {
		fields["user_id"] = from.ID
	}

	return fields
}
