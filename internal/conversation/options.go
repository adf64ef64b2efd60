package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"donation_bot/internal/catalog"
	"donation_bot/internal/domain"
	"donation_bot/internal/logging"
)

// Message keys of the option listing.
const (
	KeyNotFound      = "donate.not_found"
	KeyOptionsHeader = "donate.options.header"
	KeyOptionsItem   = "donate.options.item"
	KeyOptionsEmpty  = "donate.options.empty"
)

// OptionLister is the catalog surface the listing reads.
type OptionLister interface {
	ListActive(ctx context.Context, scope catalog.Scope) ([]domain.DonationOption, error)
	ListByPurpose(ctx context.Context, purpose string, confessionID int64) ([]domain.DonationOption, error)
}

// Menu answers the option listing command.
type Menu struct {
	options      OptionLister
	messenger    Messenger
	translator   Translator
	confessionID int64
	fallback     string
	logger       *logrus.Entry
}

// NewMenu constructs a Menu scoped to confessionID (0 lists every confession).
func NewMenu(options OptionLister, messenger Messenger, translator Translator, confessionID int64, fallbackLocale string, logger *logrus.Entry) *Menu {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Menu{
		options:      options,
		messenger:    messenger,
		translator:   translator,
		confessionID: confessionID,
		fallback:     domain.NormalizeLocale(fallbackLocale),
		logger:       logger,
	}
}

// Show sends the active options, optionally only those tagged with purpose.
func (m *Menu) Show(ctx context.Context, target Target, purpose string) error {
	if m == nil || m.options == nil || m.messenger == nil || m.translator == nil {
		return errors.New("donation menu is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	var (
		options []domain.DonationOption
		err     error
	)
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		options, err = m.options.ListActive(ctx, catalog.Scope{ConfessionID: m.confessionID})
	} else {
		options, err = m.options.ListByPurpose(ctx, purpose, m.confessionID)
	}
	if err != nil {
		return fmt.Errorf("list donation options: %w", err)
	}

	lang := domain.NormalizeLocale(target.Locale)
	if lang == "" {
		lang = m.fallback
	}

	text := m.render(lang, options)
	if err := m.messenger.SendMessage(ctx, target.ChatID, text); err != nil {
		return fmt.Errorf("send donation options: %w", err)
	}

	m.logger.WithFields(logging.Fields{
		"event":   "donation_options_listed",
		"user_id": target.UserID,
		"purpose": purpose,
		"count":   len(options),
	}).Debug("listed donation options")

	return nil
}

func (m *Menu) render(lang string, options []domain.DonationOption) string {
	if len(options) == 0 {
		return m.translator.T(lang, KeyOptionsEmpty, nil)
	}

	lines := make([]string, 0, len(options)+1)
	lines = append(lines, m.translator.T(lang, KeyOptionsHeader, nil))
	for _, opt := range options {
		lines = append(lines, m.translator.T(lang, KeyOptionsItem, map[string]string{
			"id":    html.EscapeString(strconv.FormatInt(opt.ID, 10)),
			"title": html.EscapeString(opt.Title(lang, m.fallback)),
		}))
	}
	return strings.Join(lines, "\n\n")
}
