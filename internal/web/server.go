package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/foodmemory/internal/domain"
	"github.com/conorfennell/foodmemory/internal/logbook"
	"github.com/conorfennell/foodmemory/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db      *storage.DB
	logbook *logbook.Logbook
	router  *http.ServeMux
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, lb *logbook.Logbook) *Server {
	s := &Server{
		db:      db,
		logbook: lb,
		router:  http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/restaurants", s.handleRestaurants())
	s.router.HandleFunc("/restaurants/", s.handleGetRestaurant())
	s.router.HandleFunc("/entries", s.handlePostEntry())
	s.router.HandleFunc("/entries/", s.handleEntry())
	s.router.HandleFunc("/search", s.handleSearch())
	s.router.HandleFunc("/cuisines", s.handleGetCuisines())
	s.router.HandleFunc("/suggest", s.handlePostSuggest())
}

// handleRestaurants handles both GET and POST for the restaurant collection.
func (s *Server) handleRestaurants() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListRestaurants(w, r)
		case http.MethodPost:
			s.handlePostRestaurant(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type createRestaurantRequest struct {
	Name          string   `json:"name"`
	GooglePlaceID *string  `json:"google_place_id"`
	Address       *string  `json:"address"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Cuisine       *string  `json:"cuisine"`
	PriceLevel    *int     `json:"price_level"`
	DineIn        *bool    `json:"dine_in"`
	Takeout       *bool    `json:"takeout"`
	Delivery      *bool    `json:"delivery"`
}

func (s *Server) handlePostRestaurant(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	restaurant := domain.NewRestaurant(req.Name)
	restaurant.GooglePlaceID = req.GooglePlaceID
	restaurant.Address = req.Address
	restaurant.Latitude = req.Latitude
	restaurant.Longitude = req.Longitude
	restaurant.Cuisine = req.Cuisine
	restaurant.PriceLevel = req.PriceLevel
	if req.DineIn != nil {
		restaurant.DineIn = *req.DineIn
	}
	if req.Takeout != nil {
		restaurant.Takeout = *req.Takeout
	}
	if req.Delivery != nil {
		restaurant.Delivery = *req.Delivery
	}

	if err := s.db.CreateRestaurant(restaurant); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, restaurant)
}

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := s.db.ListRestaurants()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, restaurants)
}

// handleGetRestaurant returns one restaurant with its recent entries.
func (s *Server) handleGetRestaurant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/restaurants/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid restaurant ID", http.StatusBadRequest)
			return
		}

		restaurant, err := s.db.GetRestaurant(id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if restaurant == nil {
			http.NotFound(w, r)
			return
		}

		entries, err := s.db.EntriesForRestaurant(id, 20)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"restaurant": restaurant,
			"entries":    entries,
		})
	}
}

type logEntryRequest struct {
	Restaurant     string            `json:"restaurant"`
	Location       string            `json:"location"`
	UserName       *string           `json:"user_name"`
	UserTelegramID *int64            `json:"user_telegram_id"`
	Dish           *string           `json:"dish"`
	ExactOrder     *string           `json:"exact_order"`
	Rating         *float64          `json:"rating"`
	Notes          *string           `json:"notes"`
	Sentiment      *domain.Sentiment `json:"sentiment"`
	SentimentScore *float64          `json:"sentiment_score"`
	Tags           []string          `json:"tags"`
}

// handlePostEntry runs the full log flow: resolve the restaurant (with
// Places enrichment for new names), then record the entry.
func (s *Server) handlePostEntry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req logEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Restaurant == "" {
			http.Error(w, "Restaurant name is required", http.StatusUnprocessableEntity)
			return
		}

		entry, restaurant, err := s.logbook.Log(logbook.LogRequest{
			RestaurantName: req.Restaurant,
			LocationHint:   req.Location,
			UserName:       req.UserName,
			UserTelegramID: req.UserTelegramID,
			Dish:           req.Dish,
			ExactOrder:     req.ExactOrder,
			Rating:         req.Rating,
			Notes:          req.Notes,
			Sentiment:      req.Sentiment,
			SentimentScore: req.SentimentScore,
			Tags:           req.Tags,
		})
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{
			"entry":      entry,
			"restaurant": restaurant,
		})
	}
}

// handleEntry handles GET and PATCH on a single entry.
func (s *Server) handleEntry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/entries/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid entry ID", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			entry, err := s.db.GetEntry(id)
			if err != nil {
				s.writeStoreError(w, err)
				return
			}
			if entry == nil {
				http.NotFound(w, r)
				return
			}
			s.writeJSON(w, http.StatusOK, entry)
		case http.MethodPatch:
			var update domain.EntryUpdate
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			entry, err := s.db.UpdateEntry(id, update)
			if err != nil {
				s.writeStoreError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, entry)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleSearch filters entries by cuisine, sentiment, user, free text and
// creation time range.
func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		filter := storage.SearchFilter{
			Cuisine:   q.Get("cuisine"),
			Sentiment: domain.Sentiment(q.Get("sentiment")),
			Term:      q.Get("q"),
		}
		if filter.Sentiment != "" && !filter.Sentiment.Valid() {
			http.Error(w, "Unknown sentiment", http.StatusBadRequest)
			return
		}
		if user := q.Get("user"); user != "" {
			id, err := strconv.ParseInt(user, 10, 64)
			if err != nil {
				http.Error(w, "Invalid user ID", http.StatusBadRequest)
				return
			}
			filter.UserTelegramID = id
		}
		if since := q.Get("since"); since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				http.Error(w, "Invalid since timestamp", http.StatusBadRequest)
				return
			}
			filter.Since = t
		}
		if until := q.Get("until"); until != "" {
			t, err := time.Parse(time.RFC3339, until)
			if err != nil {
				http.Error(w, "Invalid until timestamp", http.StatusBadRequest)
				return
			}
			filter.Until = t
		}
		if limit := q.Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}

		entries, err := s.db.SearchEntries(filter)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleGetCuisines() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cuisines, err := s.db.DistinctCuisines()
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, cuisines)
	}
}

type suggestRequest struct {
	Cuisine    string  `json:"cuisine"`
	ExcludeIDs []int64 `json:"exclude_ids"`
}

// handlePostSuggest picks a positively reviewed restaurant for the
// "what should we eat" flow.
func (s *Server) handlePostSuggest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req suggestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		suggestion, err := s.logbook.Suggest(req.Cuisine, req.ExcludeIDs)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if suggestion == nil {
			http.Error(w, "No positively reviewed restaurant found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, suggestion)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeStoreError maps the store's error taxonomy onto HTTP status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDuplicatePlaceID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrRestaurantNotFound),
		errors.Is(err, storage.ErrEntryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidSentiment),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrOutOfRange):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("internal error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
