package domain

import "time"

// Sentiment classifies the overall tone of an entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// Valid reports whether s is one of the four recognised sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// Restaurant is an establishment record, optionally enriched with data
// from the Places API. Pointer fields map to nullable columns.
type Restaurant struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name" validate:"required"`
	GooglePlaceID *string   `json:"google_place_id,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64  `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Cuisine       *string   `json:"cuisine,omitempty"`
	PriceLevel    *int      `json:"price_level,omitempty" validate:"omitempty,gte=0,lte=4"`
	DineIn        bool      `json:"dine_in"`
	Takeout       bool      `json:"takeout"`
	Delivery      bool      `json:"delivery"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRestaurant returns a restaurant carrying the service-mode defaults:
// dine-in on, takeout and delivery off.
func NewRestaurant(name string) *Restaurant {
	return &Restaurant{Name: name, DineIn: true}
}

// Entry is a single reported dining experience tied to one restaurant.
type Entry struct {
	ID             int64      `json:"id"`
	RestaurantID   int64      `json:"restaurant_id" validate:"required"`
	UserName       *string    `json:"user_name,omitempty"`
	UserTelegramID *int64     `json:"user_telegram_id,omitempty"`
	Dish           *string    `json:"dish,omitempty"`
	ExactOrder     *string    `json:"exact_order,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	Sentiment      *Sentiment `json:"sentiment,omitempty" validate:"omitempty,oneof=positive negative neutral mixed"`
	SentimentScore *float64   `json:"sentiment_score,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Tags           []string   `json:"tags,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// RestaurantName is populated on joined reads only.
	RestaurantName string `json:"restaurant_name,omitempty"`
}

// EntryUpdate carries the detail fields a logged entry may gain after the
// fact. Nil fields are left untouched.
type EntryUpdate struct {
	Dish           *string    `json:"dish"`
	ExactOrder     *string    `json:"exact_order"`
	Rating         *float64   `json:"rating"`
	Notes          *string    `json:"notes"`
	Sentiment      *Sentiment `json:"sentiment" validate:"omitempty,oneof=positive negative neutral mixed"`
	SentimentScore *float64   `json:"sentiment_score" validate:"omitempty,gte=-1,lte=1"`
	Tags           []string   `json:"tags"`
}
