package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Stage rewrites a decoded JSON payload. parent is the key holding the
// enclosing object, so an "id" can be told apart by what it identifies.
type Stage func(parent, key string, value interface{}) interface{}

// userKeys hold User objects. Their ids are always positive.
var userKeys = map[string]bool{
	"from":             true,
	"user":             true,
	"forward_from":     true,
	"via_bot":          true,
	"left_chat_member": true,
	"new_chat_members": true,
}

// chatKeys hold Chat objects. Group and channel ids are legitimately negative.
var chatKeys = map[string]bool{
	"chat":              true,
	"sender_chat":       true,
	"forward_from_chat": true,
}

var numericIDKeys = map[string]bool{
	"update_id":            true,
	"message_id":           true,
	"user_id":              true,
	"chat_id":              true,
	"message_thread_id":    true,
	"migrate_to_chat_id":   true,
	"migrate_from_chat_id": true,
	"date":                 true,
	"edit_date":            true,
	"total_amount":         true,
}

var integerPattern = regexp.MustCompile(`^-?[0-9]+$`)

// FixWrappedIDs restores user ids that arrived wrapped into the negative
// int32 range, adding 2^32 and rendering them as decimal strings.
func FixWrappedIDs(parent, key string, value interface{}) interface{} {
	if key != "id" || !userKeys[parent] {
		return value
	}

	n, ok := value.(json.Number)
	if !ok {
		return value
	}
	id, err := n.Int64()
	if err != nil || id >= 0 || id < math.MinInt32 {
		return value
	}

	return strconv.FormatInt(id+(1<<32), 10)
}

// CoerceScalars turns numeric strings in numeric id fields into numbers and
// "true"/"false" strings in is_/can_/has_ flags into booleans.
func CoerceScalars(parent, key string, value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}

	if numericIDKeys[key] || (key == "id" && (userKeys[parent] || chatKeys[parent])) {
		if integerPattern.MatchString(s) {
			return json.Number(s)
		}
		return value
	}

	if strings.HasPrefix(key, "is_") || strings.HasPrefix(key, "can_") || strings.HasPrefix(key, "has_") {
		switch strings.ToLower(s) {
		case "true", "1":
			return true
		case "false", "0", "":
			return false
		}
	}

	return value
}

// Normalizer decodes webhook bodies into updates after running the stages.
type Normalizer struct {
	stages []Stage
}

// NewNormalizer builds the pipeline. Wrapped id repair runs before scalar
// coercion so repaired ids end up numeric.
func NewNormalizer(fixWrappedIDs bool) *Normalizer {
	stages := make([]Stage, 0, 2)
	if fixWrappedIDs {
		stages = append(stages, FixWrappedIDs)
	}
	stages = append(stages, CoerceScalars)
	return &Normalizer{stages: stages}
}

// Decode parses raw into an update.
func (n *Normalizer) Decode(raw []byte) (*models.Update, error) {
	payload, err := decodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	if _, ok := payload.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("decode update: expected object, got %T", payload)
	}

	if n != nil {
		for _, stage := range n.stages {
			payload = walk("", "", payload, stage)
		}
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode normalized update: %w", err)
	}

	var update models.Update
	if err := json.Unmarshal(normalized, &update); err != nil {
		return nil, fmt.Errorf("decode normalized update: %w", err)
	}
	return &update, nil
}

func decodeJSON(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// walk applies stage to every object member. Array elements keep the key of
// the array as their parent.
func walk(parent, key string, value interface{}, stage Stage) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for k, child := range v {
			v[k] = walk(key, k, child, stage)
		}
		return v
	case []interface{}:
		for i, child := range v {
			v[i] = walk(parent, key, child, stage)
		}
		return v
	default:
		return stage(parent, key, value)
	}
}

// senderIDType reports how the sender id is encoded in a raw update:
// "number", "string", or "missing".
func senderIDType(raw []byte) string {
	payload, err := decodeJSON(raw)
	if err != nil {
		return "missing"
	}
	root, ok := payload.(map[string]interface{})
	if !ok {
		return "missing"
	}

	for _, kind := range []string{"message", "edited_message", "callback_query", "pre_checkout_query"} {
		obj, ok := root[kind].(map[string]interface{})
		if !ok {
			continue
		}
		from, ok := obj["from"].(map[string]interface{})
		if !ok {
			continue
		}
		switch from["id"].(type) {
		case json.Number:
			return "number"
		case string:
			return "string"
		}
	}
	return "missing"
}
