// Package places enriches restaurant records with data from the Google
// Places API (New) text search endpoint.
package places

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://places.googleapis.com/v1/places:searchText"

const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.location,places.types,places.priceLevel,places.dineIn," +
	"places.takeout,places.delivery"

// typeToCuisine maps Google place types to cuisine names.
var typeToCuisine = map[string]string{
	"thai_restaurant":           "Thai",
	"chinese_restaurant":        "Chinese",
	"japanese_restaurant":       "Japanese",
	"korean_restaurant":         "Korean",
	"vietnamese_restaurant":     "Vietnamese",
	"indian_restaurant":         "Indian",
	"mexican_restaurant":        "Mexican",
	"italian_restaurant":        "Italian",
	"french_restaurant":         "French",
	"american_restaurant":       "American",
	"mediterranean_restaurant":  "Mediterranean",
	"greek_restaurant":          "Greek",
	"spanish_restaurant":        "Spanish",
	"middle_eastern_restaurant": "Middle Eastern",
	"turkish_restaurant":        "Turkish",
	"brazilian_restaurant":      "Brazilian",
	"peruvian_restaurant":       "Peruvian",
	"seafood_restaurant":        "Seafood",
	"steak_house":               "Steakhouse",
	"sushi_restaurant":          "Sushi",
	"ramen_restaurant":          "Ramen",
	"pizza_restaurant":          "Pizza",
	"hamburger_restaurant":      "Burgers",
	"fast_food_restaurant":      "Fast Food",
	"cafe":                      "Cafe",
	"coffee_shop":               "Coffee",
	"bakery":                    "Bakery",
	"ice_cream_shop":            "Dessert",
	"bar":                       "Bar",
	"pub":                       "Pub",
	"brunch_restaurant":         "Brunch",
	"breakfast_restaurant":      "Breakfast",
	"buffet_restaurant":         "Buffet",
	"vegan_restaurant":          "Vegan",
	"vegetarian_restaurant":     "Vegetarian",
}

// priceLevels maps the API's price level enum onto the 0-4 scale.
var priceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// PlaceData is the subset of a Places result the store cares about.
type PlaceData struct {
	PlaceID    string
	Name       string
	Address    *string
	Latitude   *float64
	Longitude  *float64
	Cuisine    *string
	PriceLevel *int
	DineIn     bool
	Takeout    bool
	Delivery   bool
}

// Client is a Places API text search client.
type Client struct {
	apiKey          string
	defaultLocation string
	baseURL         string
	httpClient      *http.Client
}

// New creates a Places client. The default location biases searches when
// the caller gives no hint of its own.
func New(apiKey, defaultLocation string) *Client {
	return &Client{
		apiKey:          apiKey,
		defaultLocation: defaultLocation,
		baseURL:         defaultBaseURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

type searchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
}

type searchResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress *string `json:"formattedAddress"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Types      []string `json:"types"`
	PriceLevel string   `json:"priceLevel"`
	DineIn     *bool    `json:"dineIn"`
	Takeout    *bool    `json:"takeout"`
	Delivery   *bool    `json:"delivery"`
}

// SearchRestaurant looks up a restaurant by name, biased towards
// locationHint or the client's default location. A search with no match
// returns (nil, nil).
func (c *Client) SearchRestaurant(name, locationHint string) (*PlaceData, error) {
	location := locationHint
	if location == "" {
		location = c.defaultLocation
	}
	query := fmt.Sprintf("%s restaurant %s", name, location)

	body, err := json.Marshal(searchRequest{TextQuery: query, MaxResultCount: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for restaurant %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d for %q", resp.StatusCode, name)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode places response for %q: %w", name, err)
	}
	if len(result.Places) == 0 {
		return nil, nil // No match
	}
	return parsePlace(result.Places[0]), nil
}

func parsePlace(p place) *PlaceData {
	data := &PlaceData{
		PlaceID: p.ID,
		Name:    p.DisplayName.Text,
		Address: p.FormattedAddress,
		Cuisine: extractCuisine(p.Types),
		DineIn:  true,
	}
	if p.Location != nil {
		data.Latitude = &p.Location.Latitude
		data.Longitude = &p.Location.Longitude
	}
	if level, ok := priceLevels[p.PriceLevel]; ok {
		data.PriceLevel = &level
	}
	if p.DineIn != nil {
		data.DineIn = *p.DineIn
	}
	if p.Takeout != nil {
		data.Takeout = *p.Takeout
	}
	if p.Delivery != nil {
		data.Delivery = *p.Delivery
	}
	return data
}

// extractCuisine picks the first recognised cuisine type, falling back to
// a generic label for plain food establishments.
func extractCuisine(types []string) *string {
	for _, t := range types {
		if cuisine, ok := typeToCuisine[t]; ok {
			return &cuisine
		}
	}
	for _, t := range types {
		if t == "restaurant" || t == "food" {
			generic := "Restaurant"
			return &generic
		}
	}
	return nil
}
