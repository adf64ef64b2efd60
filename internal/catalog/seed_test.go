package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donation_bot/internal/domain"
)

func TestSeedCreatesTemplatesPerConfession(t *testing.T) {
	donations := &recordingInserts{}
	ids := &countingIDs{}
	logger, hook := test.NewNullLogger()

	seeder := NewSeeder(donations, stubConfessions{list: []domain.Confession{{ID: 1, Name: "Orthodox"}, {ID: 2, Name: "Greek Catholic"}}}, ids, logrus.NewEntry(logger))
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	seeder.now = func() time.Time { return fixed }

	created, err := seeder.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	templates := StandardTemplates()
	if created != 2*len(templates) {
		t.Fatalf("expected %d options, got %d", 2*len(templates), created)
	}
	if len(donations.options) != created {
		t.Fatalf("expected %d inserts, got %d", created, len(donations.options))
	}

	seen := make(map[int64]bool)
	for i, opt := range donations.options {
		if seen[opt.ID] {
			t.Fatalf("duplicate option id %d", opt.ID)
		}
		seen[opt.ID] = true

		if !opt.Active || opt.Currency != domain.CurrencyStars {
			t.Fatalf("expected active XTR option, got %+v", opt)
		}
		if opt.ConfessionID == nil {
			t.Fatalf("expected confession id on option %d", opt.ID)
		}
		wantConfession := int64(1)
		if i >= len(templates) {
			wantConfession = 2
		}
		if *opt.ConfessionID != wantConfession {
			t.Fatalf("option %d: expected confession %d, got %d", opt.ID, wantConfession, *opt.ConfessionID)
		}
		if !opt.CreatedAt.Equal(fixed.Truncate(time.Millisecond)) {
			t.Fatalf("expected truncated created_at, got %v", opt.CreatedAt)
		}
	}

	if ids.names["donations"] != created {
		t.Fatalf("expected %d ids from donations sequence, got %v", created, ids.names)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "seed_complete" {
		t.Fatalf("expected seed_complete log entry, got %+v", entry)
	}
}

func TestSeedWithoutConfessionsIsNoop(t *testing.T) {
	donations := &recordingInserts{}
	logger, hook := test.NewNullLogger()

	created, err := NewSeeder(donations, stubConfessions{}, &countingIDs{}, logrus.NewEntry(logger)).Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if created != 0 || len(donations.options) != 0 {
		t.Fatalf("expected nothing created, got %d", created)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["event"] != "seed_skipped" {
		t.Fatalf("expected seed_skipped warning, got %+v", entry)
	}
}

func TestSeedPropagatesErrors(t *testing.T) {
	confessions := stubConfessions{list: []domain.Confession{{ID: 1}}}
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	listErr := errors.New("list failed")
	if _, err := NewSeeder(&recordingInserts{}, stubConfessions{err: listErr}, &countingIDs{}, entry).Seed(context.Background()); !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}

	idErr := errors.New("counter down")
	if _, err := NewSeeder(&recordingInserts{}, confessions, &countingIDs{err: idErr}, entry).Seed(context.Background()); !errors.Is(err, idErr) {
		t.Fatalf("expected id error, got %v", err)
	}

	insertErr := errors.New("duplicate key")
	created, err := NewSeeder(&recordingInserts{err: insertErr}, confessions, &countingIDs{}, entry).Seed(context.Background())
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no options created, got %d", created)
	}
}

func TestSeedRequiresDependencies(t *testing.T) {
	var seeder *Seeder
	if _, err := seeder.Seed(context.Background()); err == nil {
		t.Fatalf("expected error for nil seeder")
	}

	if _, err := NewSeeder(&recordingInserts{}, stubConfessions{}, &countingIDs{}, nil).Seed(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestStandardTemplates(t *testing.T) {
	templates := StandardTemplates()
	if len(templates) != 5 {
		t.Fatalf("expected 5 templates, got %d", len(templates))
	}

	purposes := make(map[string]bool)
	for i, tpl := range templates {
		if tpl.Order != i+1 {
			t.Fatalf("template %s: expected order %d, got %d", tpl.Purpose, i+1, tpl.Order)
		}
		if tpl.MinAmount < 1 {
			t.Fatalf("template %s: expected positive minimum, got %d", tpl.Purpose, tpl.MinAmount)
		}
		if tpl.MaxAmount != nil && *tpl.MaxAmount < tpl.MinAmount {
			t.Fatalf("template %s: max below min", tpl.Purpose)
		}
		for _, lang := range []string{"en", "uk", "ru"} {
			if tpl.Name[lang] == "" || tpl.Description[lang] == "" {
				t.Fatalf("template %s missing %s translation", tpl.Purpose, lang)
			}
		}
		purposes[tpl.Purpose] = true
	}

	for _, purpose := range []string{"candle", "sorokoust", "general", "memorial", "psalter"} {
		if !purposes[purpose] {
			t.Fatalf("missing template for purpose %s", purpose)
		}
	}
}

type recordingInserts struct {
	options []domain.DonationOption
	err     error
}

func (r *recordingInserts) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	opt := document.(domain.DonationOption)
	r.options = append(r.options, opt)
	return &mongo.InsertOneResult{InsertedID: opt.ID}, nil
}

type stubConfessions struct {
	list []domain.Confession
	err  error
}

func (s stubConfessions) List(context.Context) ([]domain.Confession, error) {
	return s.list, s.err
}

type countingIDs struct {
	next  int64
	names map[string]int
	err   error
}

func (c *countingIDs) Next(_ context.Context, name string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.names == nil {
		c.names = make(map[string]int)
	}
	c.names[name]++
	c.next++
	return c.next, nil
}
