package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donation_bot/internal/domain"
	"donation_bot/internal/logging"
)

const donationSequence = "donations"

type insertCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type confessionLister interface {
	List(ctx context.Context) ([]domain.Confession, error)
}

type idSource interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Template is a donation option without ownership or identity.
type Template struct {
	Name        domain.Translations
	Description domain.Translations
	Purpose     string
	Emoji       string
	MinAmount   int64
	MaxAmount   *int64
	Order       int
}

// Seeder creates the standard donation options for every confession.
type Seeder struct {
	donations   insertCollection
	confessions confessionLister
	ids         idSource
	templates   []Template
	logger      *logrus.Entry
	now         func() time.Time
}

// NewSeeder constructs a Seeder using StandardTemplates.
func NewSeeder(donations insertCollection, confessions confessionLister, ids idSource, logger *logrus.Entry) *Seeder {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Seeder{
		donations:   donations,
		confessions: confessions,
		ids:         ids,
		templates:   StandardTemplates(),
		logger:      logger,
		now:         time.Now,
	}
}

// Seed inserts every template once per confession and returns the number of
// options created. With no confessions it logs a warning and creates nothing.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	if s == nil || s.donations == nil || s.confessions == nil || s.ids == nil {
		return 0, errors.New("seeder is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	confessions, err := s.confessions.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list confessions: %w", err)
	}

	if len(confessions) == 0 {
		s.logger.WithField("event", "seed_skipped").Warn("no confessions found, seed confessions first")
		return 0, nil
	}

	created := 0
	for _, confession := range confessions {
		confessionID := confession.ID
		for _, tpl := range s.templates {
			id, err := s.ids.Next(ctx, donationSequence)
			if err != nil {
				return created, fmt.Errorf("allocate donation id: %w", err)
			}

			now := s.now().UTC().Truncate(time.Millisecond)
			option := domain.DonationOption{
				ID:           id,
				ConfessionID: &confessionID,
				Name:         tpl.Name,
				Description:  tpl.Description,
				Purpose:      tpl.Purpose,
				MinAmount:    tpl.MinAmount,
				MaxAmount:    tpl.MaxAmount,
				Currency:     domain.CurrencyStars,
				Emoji:        tpl.Emoji,
				Active:       true,
				Order:        tpl.Order,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			if _, err := s.donations.InsertOne(ctx, option); err != nil {
				return created, fmt.Errorf("insert donation option %s: %w", tpl.Purpose, err)
			}
			created++
		}
	}

	s.logger.WithFields(logging.Fields{
		"event":       "seed_complete",
		"confessions": len(confessions),
		"options":     created,
	}).Info("donation options seeded")

	return created, nil
}

func amount(v int64) *int64 {
	return &v
}

// StandardTemplates lists the donation options every confession starts with.
func StandardTemplates() []Template {
	return []Template{
		{
			Name: domain.Translations{
				"en": "Light a Candle",
				"uk": "Поставити свічку",
				"ru": "Поставить свечу",
				"ro": "Aprinde o lumânare",
				"ka": "სანთლის დანთება",
				"de": "Kerze anzünden",
			},
			Description: domain.Translations{
				"en": "Light a candle for your loved ones",
				"uk": "Поставте свічку за здоров'я близьких",
				"ru": "Поставьте свечу за здоровье близких",
				"ro": "Aprinde o lumânare pentru cei dragi",
				"ka": "აანთეთ სანთელი თქვენი საყვარელი ადამიანებისთვის",
				"de": "Zünde eine Kerze für deine Lieben an",
			},
			Purpose:   "candle",
			Emoji:     "🕯️",
			MinAmount: 1,
			MaxAmount: amount(100),
			Order:     1,
		},
		{
			Name: domain.Translations{
				"en": "Sorokoust",
				"uk": "Сорокоуст",
				"ru": "Сорокоуст",
				"ro": "Sorokoust",
				"ka": "სოროკოუსტი",
				"de": "Sorokoust",
			},
			Description: domain.Translations{
				"en": "Order a 40-day prayer service",
				"uk": "Замовити сорокоуст за здоров'я або за упокій",
				"ru": "Заказать сорокоуст о здравии или за упокой",
				"ro": "Comandă o slujbă de rugăciune de 40 de zile",
				"ka": "40-დღიანი ლოცვის მომსახურება",
				"de": "Bestelle einen 40-Tage-Gebetsdienst",
			},
			Purpose:   "sorokoust",
			Emoji:     "🙏",
			MinAmount: 10,
			MaxAmount: amount(500),
			Order:     2,
		},
		{
			Name: domain.Translations{
				"en": "General Support",
				"uk": "Загальна підтримка",
				"ru": "Общая поддержка",
				"ro": "Sprijin general",
				"ka": "ზოგადი მხარდაჭერა",
				"de": "Allgemeine Unterstützung",
			},
			Description: domain.Translations{
				"en": "Support the church and its activities",
				"uk": "Підтримайте церкву та її діяльність",
				"ru": "Поддержите церковь и её деятельность",
				"ro": "Sprijină biserica și activitățile sale",
				"ka": "მხარი დაუჭირეთ ეკლესიას და მის საქმიანობას",
				"de": "Unterstütze die Kirche und ihre Aktivitäten",
			},
			Purpose:   "general",
			Emoji:     "⛪",
			MinAmount: 1,
			Order:     3,
		},
		{
			Name: domain.Translations{
				"en": "Memorial Service",
				"uk": "Панахида",
				"ru": "Панихида",
				"ro": "Serviciu memorial",
				"ka": "მემორიალური მსახურება",
				"de": "Gedenkgottesdienst",
			},
			Description: domain.Translations{
				"en": "Order a memorial service for the departed",
				"uk": "Замовити панахиду за упокій",
				"ru": "Заказать панихиду за упокой",
				"ro": "Comandă un serviciu memorial pentru cei plecați",
				"ka": "მემორიალური მსახურება გარდაცვლილთათვის",
				"de": "Bestelle einen Gedenkgottesdienst für Verstorbene",
			},
			Purpose:   "memorial",
			Emoji:     "✝️",
			MinAmount: 5,
			MaxAmount: amount(300),
			Order:     4,
		},
		{
			Name: domain.Translations{
				"en": "Unceasing Psalter",
				"uk": "Неусипний Псалтир",
				"ru": "Неусыпный Псалтирь",
				"ro": "Psalter neîntrerupt",
				"ka": "უწყვეტი ფსალმუნი",
				"de": "Unaufhörlicher Psalter",
			},
			Description: domain.Translations{
				"en": "Add names to the unceasing psalter reading",
				"uk": "Додати імена до читання неусипного псалтиря",
				"ru": "Добавить имена к чтению неусыпного псалтиря",
				"ro": "Adaugă nume la citirea neîntreruptă a psalterului",
				"ka": "დაამატეთ სახელები უწყვეტ ფსალმუნის კითხვაში",
				"de": "Füge Namen zur unaufhörlichen Psalterlesung hinzu",
			},
			Purpose:   "psalter",
			Emoji:     "📿",
			MinAmount: 5,
			MaxAmount: amount(200),
			Order:     5,
		},
	}
}
