package logbook

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/conorfennell/foodmemory/internal/domain"
	"github.com/conorfennell/foodmemory/internal/places"
	"github.com/conorfennell/foodmemory/internal/storage"
)

// fakeEnricher counts lookups and serves a canned result or an error.
type fakeEnricher struct {
	calls int
	data  *places.PlaceData
	err   error
}

func (f *fakeEnricher) SearchRestaurant(name, locationHint string) (*places.PlaceData, error) {
	f.calls++
	return f.data, f.err
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func sentPtr(s domain.Sentiment) *domain.Sentiment { return &s }

func TestLogCreatesAndEnrichesNewRestaurant(t *testing.T) {
	db := openTestDB(t)
	cuisine := "Thai"
	enricher := &fakeEnricher{data: &places.PlaceData{
		PlaceID: "ChIJ123",
		Name:    "Siam Station",
		Cuisine: &cuisine,
		DineIn:  true,
		Takeout: true,
	}}
	lb := New(db, enricher)

	entry, restaurant, err := lb.Log(LogRequest{
		RestaurantName: "Siam Station",
		Dish:           strPtr("Pad Thai"),
		Sentiment:      sentPtr(domain.SentimentPositive),
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if enricher.calls != 1 {
		t.Errorf("Expected 1 enricher call, got %d", enricher.calls)
	}
	if restaurant.GooglePlaceID == nil || *restaurant.GooglePlaceID != "ChIJ123" {
		t.Error("Expected the restaurant to be enriched with a place ID")
	}
	if restaurant.Cuisine == nil || *restaurant.Cuisine != "Thai" {
		t.Error("Expected the restaurant to be enriched with a cuisine")
	}
	if entry.RestaurantID != restaurant.ID {
		t.Errorf("Expected entry to reference restaurant %d, got %d", restaurant.ID, entry.RestaurantID)
	}
	if entry.RestaurantName != "Siam Station" {
		t.Errorf("Expected entry to carry the restaurant name, got %q", entry.RestaurantName)
	}
}

func TestLogSkipsEnrichmentForKnownRestaurant(t *testing.T) {
	db := openTestDB(t)
	known := domain.NewRestaurant("Siam Station")
	known.GooglePlaceID = strPtr("ChIJ123")
	if err := db.CreateRestaurant(known); err != nil {
		t.Fatalf("CreateRestaurant failed: %v", err)
	}

	enricher := &fakeEnricher{}
	lb := New(db, enricher)

	_, restaurant, err := lb.Log(LogRequest{RestaurantName: "Siam Station"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if enricher.calls != 0 {
		t.Errorf("Expected no enricher calls for an enriched restaurant, got %d", enricher.calls)
	}
	if restaurant.ID != known.ID {
		t.Errorf("Expected existing restaurant %d, got %d", known.ID, restaurant.ID)
	}
}

func TestLogDegradesWhenEnrichmentFails(t *testing.T) {
	db := openTestDB(t)
	enricher := &fakeEnricher{err: errors.New("quota exceeded")}
	lb := New(db, enricher)

	entry, restaurant, err := lb.Log(LogRequest{RestaurantName: "Casa Maria"})
	if err != nil {
		t.Fatalf("Expected the log to succeed without enrichment, got %v", err)
	}
	if restaurant.GooglePlaceID != nil {
		t.Error("Expected an unenriched restaurant")
	}
	if entry.ID == 0 {
		t.Error("Expected the entry to be recorded")
	}
}

func TestLogWithoutEnricher(t *testing.T) {
	db := openTestDB(t)
	lb := New(db, nil)

	_, restaurant, err := lb.Log(LogRequest{RestaurantName: "Casa Maria"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if restaurant.Name != "Casa Maria" {
		t.Errorf("Expected restaurant Casa Maria, got %q", restaurant.Name)
	}
	if !restaurant.DineIn {
		t.Error("Expected the dine-in default")
	}
}

func TestLogRejectsBadEntry(t *testing.T) {
	db := openTestDB(t)
	lb := New(db, nil)

	_, _, err := lb.Log(LogRequest{
		RestaurantName: "Casa Maria",
		Sentiment:      sentPtr("great"),
	})
	if !errors.Is(err, domain.ErrInvalidSentiment) {
		t.Errorf("Expected ErrInvalidSentiment, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	db := openTestDB(t)
	lb := New(db, nil)

	t.Run("nothing qualifies", func(t *testing.T) {
		suggestion, err := lb.Suggest("", nil)
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if suggestion != nil {
			t.Errorf("Expected no suggestion, got %+v", suggestion)
		}
	})

	t.Run("positively reviewed restaurant", func(t *testing.T) {
		_, restaurant, err := lb.Log(LogRequest{
			RestaurantName: "Siam Station",
			Sentiment:      sentPtr(domain.SentimentPositive),
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}

		suggestion, err := lb.Suggest("", nil)
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if suggestion == nil || suggestion.Restaurant.ID != restaurant.ID {
			t.Fatalf("Expected Siam Station to be suggested, got %+v", suggestion)
		}
		if len(suggestion.Entries) != 1 {
			t.Errorf("Expected 1 supporting entry, got %d", len(suggestion.Entries))
		}

		excluded, err := lb.Suggest("", []int64{restaurant.ID})
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if excluded != nil {
			t.Errorf("Expected nothing after exclusion, got %+v", excluded)
		}
	})
}
