package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"donation_bot/internal/config"
)

func TestSetupUsesJSONFormatterInProduction(t *testing.T) {
	resetLogger()

	entry, err := Setup(config.Config{AppEnv: config.EnvProduction, LogLevel: "info"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jsonFormatter, ok := entry.Logger.Formatter.(*logrus.JSONFormatter)
	if !ok {
		t.Fatalf("expected JSON formatter, got %T", entry.Logger.Formatter)
	}

	if jsonFormatter.FieldMap[logrus.FieldKeyTime] != "ts" {
		t.Fatalf("expected ts field for timestamps, got %q", jsonFormatter.FieldMap[logrus.FieldKeyTime])
	}
	if entry.Data["service"] != serviceName {
		t.Fatalf("expected service field, got %v", entry.Data["service"])
	}
	if entry.Data["env"] != config.EnvProduction {
		t.Fatalf("expected env field to be %q, got %v", config.EnvProduction, entry.Data["env"])
	}
}

func TestSetupUsesTextFormatterInDevelopment(t *testing.T) {
	resetLogger()

	entry, err := Setup(config.Config{AppEnv: config.EnvDevelopment, LogLevel: "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := entry.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected Text formatter, got %T", entry.Logger.Formatter)
	}
	if entry.Data["env"] != config.EnvDevelopment {
		t.Fatalf("expected env field to be %q, got %v", config.EnvDevelopment, entry.Data["env"])
	}
}

func TestWithContextOmitsZeroFields(t *testing.T) {
	resetLogger()

	logger, hook := test.NewNullLogger()
	baseLogger = logrus.NewEntry(logger)

	WithContext(Context{}).Info("bare")

	last := hook.LastEntry()
	for _, key := range []string{"user_id", "chat_id", "update_id", "event"} {
		if _, ok := last.Data[key]; ok {
			t.Fatalf("expected %s to be omitted, got %v", key, last.Data)
		}
	}
}

func TestContextFields(t *testing.T) {
	fields := Context{UserID: 5, UpdateID: 11, Event: "telegram_handler_failed"}.Fields()

	if fields["user_id"] != int64(5) || fields["update_id"] != int64(11) || fields["event"] != "telegram_handler_failed" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["chat_id"]; ok {
		t.Fatalf("expected zero chat id to be omitted, got %v", fields)
	}
}

func TestSetupRejectsInvalidLogLevel(t *testing.T) {
	resetLogger()

	if _, err := Setup(config.Config{AppEnv: config.EnvDevelopment, LogLevel: "loud"}); err == nil {
		t.Fatalf("expected error for invalid log level")
	}

	if baseLogger != nil {
		t.Fatalf("base logger should remain unset after failure")
	}
}

func TestLoggingHelpersIncludeContextAndLevels(t *testing.T) {
	resetLogger()

	logger, hook := test.NewNullLogger()
	logger.SetFormatter(formatterForEnv(config.EnvDevelopment))
	baseLogger = logger.WithFields(logrus.Fields{
		"service": serviceName,
		"env":     config.EnvDevelopment,
	})

	Info("hello world", logrus.Fields{"event": "startup"})
	Error("boom", logrus.Fields{"error": "fail"})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.InfoLevel || entries[0].Data["event"] != "startup" {
		t.Fatalf("expected info level with startup event, got level=%s data=%v", entries[0].Level, entries[0].Data)
	}
	if entries[1].Level != logrus.ErrorLevel || entries[1].Data["error"] != "fail" {
		t.Fatalf("expected error level with error field, got level=%s data=%v", entries[1].Level, entries[1].Data)
	}

	ctxEntry := WithContext(Context{UserID: 42, ChatID: -1001, UpdateID: 7, Event: " donate_start "})
	ctxEntry.Info("ctx log")

	last := hook.LastEntry()
	if last.Data["user_id"] != int64(42) || last.Data["chat_id"] != int64(-1001) || last.Data["event"] != "donate_start" {
		t.Fatalf("expected context fields, got %v", last.Data)
	}
	if last.Data["update_id"] != int64(7) {
		t.Fatalf("expected context fields, got %v", last.Data)
	}
	if last.Data["service"] != serviceName || last.Data["env"] != config.EnvDevelopment {
		t.Fatalf("expected base fields preserved, got %v", last.Data)
	}
}
