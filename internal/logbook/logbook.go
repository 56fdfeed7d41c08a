// Package logbook coordinates the store and the Places client to turn a
// reported meal into restaurant and entry rows.
package logbook

import (
	"fmt"
	"log/slog"

	"github.com/conorfennell/foodmemory/internal/domain"
	"github.com/conorfennell/foodmemory/internal/places"
	"github.com/conorfennell/foodmemory/internal/storage"
)

// Enricher is the slice of the Places client the logbook needs.
type Enricher interface {
	SearchRestaurant(name, locationHint string) (*places.PlaceData, error)
}

// Logbook records dining experiences, enriching new restaurants with
// Places data when a client is configured.
type Logbook struct {
	db       *storage.DB
	enricher Enricher
}

// New creates a logbook. enricher may be nil, in which case restaurants
// are created from their name alone.
func New(db *storage.DB, enricher Enricher) *Logbook {
	return &Logbook{db: db, enricher: enricher}
}

// LogRequest is one reported meal.
type LogRequest struct {
	RestaurantName string
	LocationHint   string
	UserName       *string
	UserTelegramID *int64
	Dish           *string
	ExactOrder     *string
	Rating         *float64
	Notes          *string
	Sentiment      *domain.Sentiment
	SentimentScore *float64
	Tags           []string
}

// Log resolves the restaurant, creating and enriching it as needed, then
// records the entry against it. Enrichment failures are logged and the
// entry is recorded against an unenriched row.
func (l *Logbook) Log(req LogRequest) (*domain.Entry, *domain.Restaurant, error) {
	restaurant, err := l.resolveRestaurant(req.RestaurantName, req.LocationHint)
	if err != nil {
		return nil, nil, err
	}

	entry := &domain.Entry{
		RestaurantID:   restaurant.ID,
		UserName:       req.UserName,
		UserTelegramID: req.UserTelegramID,
		Dish:           req.Dish,
		ExactOrder:     req.ExactOrder,
		Rating:         req.Rating,
		Notes:          req.Notes,
		Sentiment:      req.Sentiment,
		SentimentScore: req.SentimentScore,
		Tags:           req.Tags,
	}
	if err := l.db.CreateEntry(entry); err != nil {
		return nil, nil, fmt.Errorf("failed to log entry at %q: %w", restaurant.Name, err)
	}
	entry.RestaurantName = restaurant.Name
	return entry, restaurant, nil
}

// resolveRestaurant finds the named restaurant, consulting Places when the
// name is new or the existing row has never been enriched.
func (l *Logbook) resolveRestaurant(name, locationHint string) (*domain.Restaurant, error) {
	existing, err := l.db.FindRestaurantByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.GooglePlaceID != nil {
		return existing, nil
	}

	candidate := domain.NewRestaurant(name)
	if existing != nil {
		candidate.Name = existing.Name
	}

	if l.enricher != nil {
		data, err := l.enricher.SearchRestaurant(name, locationHint)
		if err != nil {
			slog.Warn("places lookup failed, continuing without enrichment",
				"restaurant", name, "error", err)
		} else if data != nil {
			candidate.GooglePlaceID = &data.PlaceID
			candidate.Address = data.Address
			candidate.Latitude = data.Latitude
			candidate.Longitude = data.Longitude
			candidate.Cuisine = data.Cuisine
			candidate.PriceLevel = data.PriceLevel
			candidate.DineIn = data.DineIn
			candidate.Takeout = data.Takeout
			candidate.Delivery = data.Delivery
		}
	}

	restaurant, err := l.db.FindOrCreateRestaurant(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve restaurant %q: %w", name, err)
	}
	return restaurant, nil
}

// Suggestion is a pick from the positively reviewed restaurants with its
// recent entries as supporting evidence.
type Suggestion struct {
	Restaurant *domain.Restaurant `json:"restaurant"`
	Entries    []domain.Entry     `json:"entries"`
}

// Suggest picks a random positively reviewed restaurant, optionally
// filtered by cuisine and excluding restaurants already offered. It
// returns nil when nothing qualifies.
func (l *Logbook) Suggest(cuisine string, excludeIDs []int64) (*Suggestion, error) {
	restaurant, entries, err := l.db.RandomPositiveRestaurant(cuisine, excludeIDs)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, nil
	}
	return &Suggestion{Restaurant: restaurant, Entries: entries}, nil
}
