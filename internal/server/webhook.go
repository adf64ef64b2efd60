package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/logging"
	"donation_bot/internal/telegram"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBody = 1 << 20
)

// Webhook outcomes, also used as metric labels.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

type webhook struct {
	processor UpdateProcessor
	decoder   UpdateDecoder
	secret    string
	observer  WebhookObserver
	logger    *logrus.Entry
}

type webhookResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WithWebhook serves POST /telegram/webhook. When secret is non-empty, the
// request must carry it in X-Telegram-Bot-Api-Secret-Token. observer may be nil.
func WithWebhook(processor UpdateProcessor, decoder UpdateDecoder, secret string, observer WebhookObserver) Option {
	return func(s *Server) {
		s.webhook = &webhook{
			processor: processor,
			decoder:   decoder,
			secret:    secret,
			observer:  observer,
			logger:    s.logger,
		}
	}
}

// ServeHTTP always answers 200 so Telegram does not redeliver; failures are
// reported in the body as {"ok":false,"error":...}.
func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithField("request_id", requestIDFrom(r.Context()))

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.secret)) != 1 {
		logger.WithField("event", "webhook_rejected").Warn("webhook secret mismatch")
		h.finish(w, logger, resultRejected, "invalid secret token")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.WithField("event", "webhook_read_error").WithError(err).Warn("failed to read webhook body")
		h.finish(w, logger, resultFailed, "read body: "+err.Error())
		return
	}

	update, err := h.decoder.Decode(raw)
	if err != nil {
		logger.WithFields(logging.Fields{
			"event": "webhook_decode_error",
			"raw":   string(raw),
		}).WithError(err).Warn("failed to decode webhook update")
		h.finish(w, logger, resultFailed, err.Error())
		return
	}

	logger = logger.WithField("update_id", update.ID)
	if err := h.process(r.Context(), raw, update); err != nil {
		logger.WithField("event", "webhook_process_error").WithError(err).Error("failed to process webhook update")
		h.finish(w, logger, resultFailed, err.Error())
		return
	}

	logger.WithField("event", "webhook_update").Debug("webhook update processed")
	h.finish(w, logger, resultAccepted, "")
}

// process dispatches the update detached from the request's cancellation so
// a dropped connection does not abort a half-sent reply.
func (h *webhook) process(ctx context.Context, raw []byte, update *models.Update) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing update: %v", rec)
		}
	}()

	ctx = telegram.WithRawUpdate(context.WithoutCancel(ctx), raw)
	h.processor.ProcessUpdate(ctx, update)
	return nil
}

func (h *webhook) finish(w http.ResponseWriter, logger *logrus.Entry, result, message string) {
	if h.observer != nil {
		h.observer.ObserveWebhook(result)
	}

	resp := webhookResponse{OK: result == resultAccepted, Error: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.WithField("event", "http_write_error").WithError(err).Error("failed to encode webhook response")
	}
}
