package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"github.com/sirupsen/logrus"

	"donation_bot/internal/domain"
	"donation_bot/internal/logging"
	"donation_bot/internal/session"
)

// Messenger delivers text and invoices to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendInvoice(ctx context.Context, chatID int64, title, description string, invoice Invoice) error
}

// Translator resolves message keys for a language.
type Translator interface {
	T(lang, key string, values map[string]string) string
}

// Recorder accepts usage events. It never fails the dialogue.
type Recorder interface {
	Record(ctx context.Context, name string, value map[string]interface{})
}

// OptionSource is the catalog surface the dialogue reads.
type OptionSource interface {
	GetByID(ctx context.Context, id int64) (domain.DonationOption, bool, error)
}

// Target identifies who an update came from and where replies go.
type Target struct {
	UserID int64
	ChatID int64
	Locale string
}

// Flow runs the state machine against the session store and delivery
// collaborators. One call handles one update.
type Flow struct {
	sessions   session.Store
	messenger  Messenger
	translator Translator
	recorder   Recorder
	options    OptionSource
	fallback   string
	logger     *logrus.Entry
}

// NewFlow wires a Flow. recorder and options may be nil; without options,
// commands naming an option are answered as not found.
func NewFlow(sessions session.Store, messenger Messenger, translator Translator, recorder Recorder, options OptionSource, fallbackLocale string, logger *logrus.Entry) *Flow {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Flow{
		sessions:   sessions,
		messenger:  messenger,
		translator: translator,
		recorder:   recorder,
		options:    options,
		fallback:   domain.NormalizeLocale(fallbackLocale),
		logger:     logger,
	}
}

// Start begins a new dialogue, replacing any parked one.
func (f *Flow) Start(ctx context.Context, target Target) error {
	if err := f.validate(ctx, target); err != nil {
		return err
	}

	return f.apply(ctx, target, Completed, Event{Kind: EventStart})
}

// StartWithOption begins a dialogue for one catalog option. An unknown or
// inactive option gets a not-found reply and leaves any parked dialogue as is.
func (f *Flow) StartWithOption(ctx context.Context, target Target, optionID int64) error {
	if err := f.validate(ctx, target); err != nil {
		return err
	}

	option, found, err := f.lookup(ctx, optionID)
	if err != nil {
		return err
	}
	if !found {
		f.logger.WithFields(logging.Fields{
			"event":     "donation_option_not_found",
			"user_id":   target.UserID,
			"option_id": optionID,
		}).Info("requested donation option not available")
		return f.send(ctx, target, KeyNotFound, nil)
	}

	// Amount bounds and per-option currency are stored but not enforced yet;
	// every invoice is in XTR and any amount >= 1 is accepted.
	if option.MinAmount > 1 || !option.Unbounded() || (option.Currency != "" && option.Currency != domain.CurrencyStars) {
		f.logger.WithFields(logging.Fields{
			"event":      "donation_option_limits_ignored",
			"option_id":  option.ID,
			"min_amount": option.MinAmount,
			"currency":   option.Currency,
		}).Debug("donation option limits are not applied to the amount step")
	}

	return f.apply(ctx, target, Completed, Event{Kind: EventStart, Option: &option})
}

// HandleText feeds a text reply into the parked dialogue. It reports false
// when the user has no dialogue in progress.
func (f *Flow) HandleText(ctx context.Context, target Target, text string) (bool, error) {
	if err := f.validate(ctx, target); err != nil {
		return false, err
	}

	parked, ok, err := f.sessions.State(ctx, target.UserID)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if !ok || State(parked.Step) != AwaitingAmount {
		return false, nil
	}

	ev := Event{Kind: EventText, Text: text, OptionID: parked.OptionID}
	if err := f.apply(ctx, target, AwaitingAmount, ev); err != nil {
		return true, err
	}
	return true, nil
}

func (f *Flow) apply(ctx context.Context, target Target, state State, ev Event) error {
	next, effects := Transition(state, ev)

	for _, effect := range effects {
		if err := f.execute(ctx, target, effect); err != nil {
			return err
		}
	}

	if err := f.persist(ctx, target.UserID, next, ev); err != nil {
		return err
	}

	f.logger.WithFields(logging.Fields{
		"event":   "donation_transition",
		"user_id": target.UserID,
		"from":    string(state),
		"to":      string(next),
		"effects": len(effects),
	}).Debug("donation dialogue advanced")

	return nil
}

func (f *Flow) execute(ctx context.Context, target Target, effect Effect) error {
	switch effect.Kind {
	case EffectSendMessage:
		return f.send(ctx, target, effect.Key, f.optionValues(target, effect.Option))
	case EffectSendInvoice:
		lang := f.locale(target)
		title := f.translator.T(lang, InvoiceTitleKey, nil)
		description := f.translator.T(lang, InvoiceDescriptionKey, nil)
		if err := f.messenger.SendInvoice(ctx, target.ChatID, title, description, effect.Invoice); err != nil {
			return fmt.Errorf("send invoice: %w", err)
		}
		return nil
	case EffectRecordEvent:
		if f.recorder != nil {
			f.recorder.Record(ctx, effect.Name, effect.Value)
		}
		return nil
	default:
		return fmt.Errorf("unknown effect %s", effect.Kind)
	}
}

func (f *Flow) persist(ctx context.Context, userID int64, next State, ev Event) error {
	if next == AwaitingAmount {
		parked := session.Session{Step: string(AwaitingAmount), OptionID: ev.OptionID}
		if ev.Option != nil {
			parked.OptionID = ev.Option.ID
		}
		if err := f.sessions.Next(ctx, userID, parked); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	}

	if err := f.sessions.End(ctx, userID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (f *Flow) send(ctx context.Context, target Target, key string, values map[string]string) error {
	text := f.translator.T(f.locale(target), key, values)
	if err := f.messenger.SendMessage(ctx, target.ChatID, text); err != nil {
		return fmt.Errorf("send %s: %w", key, err)
	}
	return nil
}

func (f *Flow) lookup(ctx context.Context, optionID int64) (domain.DonationOption, bool, error) {
	if f.options == nil || optionID <= 0 {
		return domain.DonationOption{}, false, nil
	}

	option, found, err := f.options.GetByID(ctx, optionID)
	if err != nil {
		return domain.DonationOption{}, false, fmt.Errorf("get donation option: %w", err)
	}
	return option, found, nil
}

// optionValues escapes catalog text; replies are sent in HTML parse mode.
func (f *Flow) optionValues(target Target, option *domain.DonationOption) map[string]string {
	if option == nil {
		return nil
	}

	lang := f.locale(target)
	return map[string]string{
		"id":          html.EscapeString(strconv.FormatInt(option.ID, 10)),
		"title":       html.EscapeString(option.Title(lang, f.fallback)),
		"description": html.EscapeString(option.Description.Get(lang, f.fallback)),
	}
}

func (f *Flow) locale(target Target) string {
	if lang := domain.NormalizeLocale(target.Locale); lang != "" {
		return lang
	}
	return f.fallback
}

func (f *Flow) validate(ctx context.Context, target Target) error {
	if f == nil || f.sessions == nil || f.messenger == nil || f.translator == nil {
		return errors.New("donation flow is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if target.UserID == 0 || target.ChatID == 0 {
		return errors.New("user and chat are required")
	}
	return nil
}
