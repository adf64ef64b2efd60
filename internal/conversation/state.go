// Package conversation implements the donation dialogue: a two-state machine
// that collects an amount and issues a Telegram Stars invoice.
package conversation

import (
	"strconv"

	"donation_bot/internal/domain"
)

// State is the position of a user in the donation dialogue.
type State string

const (
	// AwaitingAmount waits for the user to send a number of stars.
	AwaitingAmount State = "awaiting_amount"
	// Completed is terminal. A user without a parked session is Completed.
	Completed State = "completed"
)

// EventKind classifies inbound events.
type EventKind int

const (
	// EventStart is the donate command. It restarts the dialogue from any state.
	EventStart EventKind = iota + 1
	// EventText is a plain text reply.
	EventText
)

// Event is one input to the machine.
type Event struct {
	Kind EventKind
	Text string
	// Option is the catalog entry chosen with the command, if any.
	Option *domain.DonationOption
	// OptionID is the option parked with the session, for text events.
	OptionID int64
}

// EffectKind classifies side effects requested by a transition.
type EffectKind int

const (
	EffectSendMessage EffectKind = iota + 1
	EffectSendInvoice
	EffectRecordEvent
)

// Message keys used by the dialogue.
const (
	KeyMain       = "donate.main"
	KeyOptionMain = "donate.option_main"
	KeyInvalid    = "donate.invalid"
)

// Metric names recorded by the dialogue.
const (
	EventCommandDonate = "command.donate"
	EventInvoice       = "donate.invoice"
)

// Effect is a side effect for the caller to execute, in order.
type Effect struct {
	Kind EffectKind

	// EffectSendMessage
	Key    string
	Option *domain.DonationOption

	// EffectSendInvoice
	Invoice Invoice

	// EffectRecordEvent
	Name  string
	Value map[string]interface{}
}

// Transition applies ev to state and returns the next state with the effects
// to perform. It has no side effects of its own.
func Transition(state State, ev Event) (State, []Effect) {
	switch ev.Kind {
	case EventStart:
		return AwaitingAmount, startEffects(ev.Option)
	case EventText:
		if state != AwaitingAmount {
			return state, nil
		}

		amount := ParseAmount(ev.Text)
		if amount < 1 {
			return AwaitingAmount, []Effect{{Kind: EffectSendMessage, Key: KeyInvalid}}
		}

		value := map[string]interface{}{"value": amount}
		if ev.OptionID > 0 {
			value["option_id"] = ev.OptionID
		}

		return Completed, []Effect{
			{Kind: EffectSendInvoice, Invoice: NewInvoice(amount)},
			{Kind: EffectRecordEvent, Name: EventInvoice, Value: value},
		}
	default:
		return state, nil
	}
}

func startEffects(option *domain.DonationOption) []Effect {
	if option == nil {
		return []Effect{
			{Kind: EffectSendMessage, Key: KeyMain},
			{Kind: EffectRecordEvent, Name: EventCommandDonate},
		}
	}

	return []Effect{
		{Kind: EffectSendMessage, Key: KeyOptionMain, Option: option},
		{Kind: EffectRecordEvent, Name: EventCommandDonate, Value: map[string]interface{}{"option_id": option.ID}},
	}
}

// String renders the kind for logs.
func (k EffectKind) String() string {
	switch k {
	case EffectSendMessage:
		return "send_message"
	case EffectSendInvoice:
		return "send_invoice"
	case EffectRecordEvent:
		return "record_event"
	default:
		return "effect(" + strconv.Itoa(int(k)) + ")"
	}
}
