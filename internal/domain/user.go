// Package domain defines the donation catalog entities and their Mongo repositories.
package domain

import "time"

// User represents a Telegram user who talked to the bot.
type User struct {
	UserID       int64     `bson:"user_id" json:"user_id"`
	LanguageCode string    `bson:"language_code,omitempty" json:"language_code,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	LastSeenAt   time.Time `bson:"last_seen_at" json:"last_seen_at"`
}
