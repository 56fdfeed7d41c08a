package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/foodmemory/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to
// date. Foreign key enforcement is switched on for every connection via the
// DSN pragma. Applying the schema is idempotent.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so lookups can run
// inside or outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const restaurantColumns = `id, name, google_place_id, address, latitude, longitude,
	cuisine, price_level, dine_in, takeout, delivery, created_at, updated_at`

// scanRestaurant reads one restaurant row into a domain struct.
func scanRestaurant(row interface{ Scan(...any) error }) (*domain.Restaurant, error) {
	var (
		r       domain.Restaurant
		placeID sql.NullString
		address sql.NullString
		lat     sql.NullFloat64
		lng     sql.NullFloat64
		cuisine sql.NullString
		price   sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &r.Name, &placeID, &address, &lat, &lng,
		&cuisine, &price, &r.DineIn, &r.Takeout, &r.Delivery,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.GooglePlaceID = nullString(placeID)
	r.Address = nullString(address)
	r.Latitude = nullFloat(lat)
	r.Longitude = nullFloat(lng)
	r.Cuisine = nullString(cuisine)
	if price.Valid {
		p := int(price.Int64)
		r.PriceLevel = &p
	}
	return &r, nil
}

// CreateRestaurant inserts a new restaurant and assigns its identifier.
// The write is rejected when the name is missing or the google_place_id
// collides with an existing row.
func (db *DB) CreateRestaurant(r *domain.Restaurant) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("failed to validate restaurant %q: %w", r.Name, err)
	}
	return db.insertRestaurant(db.conn, r)
}

func (db *DB) insertRestaurant(q querier, r *domain.Restaurant) error {
	now := time.Now().UTC()
	res, err := q.Exec(`
		INSERT INTO restaurants
			(name, google_place_id, address, latitude, longitude, cuisine,
			 price_level, dine_in, takeout, delivery, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Name, r.GooglePlaceID, r.Address, r.Latitude, r.Longitude, r.Cuisine,
		r.PriceLevel, r.DineIn, r.Takeout, r.Delivery, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert restaurant %q: %w", r.Name, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for restaurant %q: %w", r.Name, err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetRestaurant retrieves a restaurant by its identifier.
func (db *DB) GetRestaurant(id int64) (*domain.Restaurant, error) {
	row := db.conn.QueryRow(`SELECT `+restaurantColumns+` FROM restaurants WHERE id = ?`, id)
	r, err := scanRestaurant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Restaurant not found
		}
		return nil, fmt.Errorf("failed to get restaurant %d: %w", id, err)
	}
	return r, nil
}

// FindRestaurantByName looks a restaurant up by name, trying an exact
// case-insensitive match before falling back to a partial match.
func (db *DB) FindRestaurantByName(name string) (*domain.Restaurant, error) {
	return findRestaurantByName(db.conn, name)
}

func findRestaurantByName(q querier, name string) (*domain.Restaurant, error) {
	row := q.QueryRow(`
		SELECT `+restaurantColumns+` FROM restaurants
		WHERE LOWER(name) = LOWER(?) LIMIT 1
	`, name)
	r, err := scanRestaurant(row)
	if err == sql.ErrNoRows {
		row = q.QueryRow(`
			SELECT `+restaurantColumns+` FROM restaurants
			WHERE LOWER(name) LIKE LOWER(?) LIMIT 1
		`, "%"+name+"%")
		r, err = scanRestaurant(row)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Restaurant not found
		}
		return nil, fmt.Errorf("failed to find restaurant by name %q: %w", name, err)
	}
	return r, nil
}

// FindOrCreateRestaurant finds an existing restaurant by place ID or name,
// backfilling Places data onto a bare row, or inserts a new row. The whole
// reconciliation runs in one transaction so concurrent callers cannot
// produce two rows with the same google_place_id.
func (db *DB) FindOrCreateRestaurant(r *domain.Restaurant) (*domain.Restaurant, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate restaurant %q: %w", r.Name, err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.GooglePlaceID != nil {
		row := tx.QueryRow(`
			SELECT `+restaurantColumns+` FROM restaurants WHERE google_place_id = ?
		`, *r.GooglePlaceID)
		existing, err := scanRestaurant(row)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to find restaurant by place ID: %w", err)
		}
		if existing != nil {
			return existing, tx.Commit()
		}
	}

	existing, err := findRestaurantByName(tx, r.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Backfill Places data onto a row that was created without it.
		if r.GooglePlaceID != nil && existing.GooglePlaceID == nil {
			now := time.Now().UTC()
			_, err := tx.Exec(`
				UPDATE restaurants SET
					google_place_id = ?, address = ?, latitude = ?, longitude = ?,
					cuisine = COALESCE(?, cuisine), price_level = COALESCE(?, price_level),
					dine_in = ?, takeout = ?, delivery = ?, updated_at = ?
				WHERE id = ?
			`,
				r.GooglePlaceID, r.Address, r.Latitude, r.Longitude,
				r.Cuisine, r.PriceLevel, r.DineIn, r.Takeout, r.Delivery,
				now, existing.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to enrich restaurant %d: %w", existing.ID, classify(err))
			}
			existing.GooglePlaceID = r.GooglePlaceID
			existing.Address = r.Address
			existing.Latitude = r.Latitude
			existing.Longitude = r.Longitude
			if r.Cuisine != nil {
				existing.Cuisine = r.Cuisine
			}
			if r.PriceLevel != nil {
				existing.PriceLevel = r.PriceLevel
			}
			existing.DineIn = r.DineIn
			existing.Takeout = r.Takeout
			existing.Delivery = r.Delivery
			existing.UpdatedAt = now
		}
		return existing, tx.Commit()
	}

	if err := db.insertRestaurant(tx, r); err != nil {
		return nil, err
	}
	return r, tx.Commit()
}

// ListRestaurants retrieves all stored restaurants ordered by name.
func (db *DB) ListRestaurants() ([]domain.Restaurant, error) {
	rows, err := db.conn.Query(`SELECT ` + restaurantColumns + ` FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []domain.Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restaurant row: %w", err)
		}
		restaurants = append(restaurants, *r)
	}
	return restaurants, rows.Err()
}

const entryColumns = `e.id, e.restaurant_id, e.user_name, e.user_telegram_id, e.dish,
	e.exact_order, e.rating, e.notes, e.sentiment, e.sentiment_score, e.tags,
	e.created_at, r.name`

// scanEntry reads one joined entry row into a domain struct.
func scanEntry(row interface{ Scan(...any) error }) (*domain.Entry, error) {
	var (
		e          domain.Entry
		userName   sql.NullString
		telegramID sql.NullInt64
		dish       sql.NullString
		exactOrder sql.NullString
		rating     sql.NullFloat64
		notes      sql.NullString
		sentiment  sql.NullString
		score      sql.NullFloat64
		tags       sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.RestaurantID, &userName, &telegramID, &dish,
		&exactOrder, &rating, &notes, &sentiment, &score, &tags,
		&e.CreatedAt, &e.RestaurantName,
	)
	if err != nil {
		return nil, err
	}
	e.UserName = nullString(userName)
	e.Dish = nullString(dish)
	e.ExactOrder = nullString(exactOrder)
	e.Rating = nullFloat(rating)
	e.Notes = nullString(notes)
	e.SentimentScore = nullFloat(score)
	if telegramID.Valid {
		e.UserTelegramID = &telegramID.Int64
	}
	if sentiment.Valid {
		s := domain.Sentiment(sentiment.String)
		e.Sentiment = &s
	}
	if e.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for entry %d: %w", e.ID, err)
	}
	return &e, nil
}

// CreateEntry inserts a new entry and assigns its identifier. The write is
// rejected when the restaurant does not exist or the sentiment is outside
// the recognised set.
func (db *DB) CreateEntry(e *domain.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("failed to validate entry: %w", err)
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	now := time.Now().UTC()
	res, err := db.conn.Exec(`
		INSERT INTO entries
			(restaurant_id, user_name, user_telegram_id, dish, exact_order,
			 rating, notes, sentiment, sentiment_score, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.RestaurantID, e.UserName, e.UserTelegramID, e.Dish, e.ExactOrder,
		e.Rating, e.Notes, e.Sentiment, e.SentimentScore, tags, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry for restaurant %d: %w", e.RestaurantID, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for entry: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

// GetEntry retrieves an entry by its identifier, joined with the
// restaurant's name.
func (db *DB) GetEntry(id int64) (*domain.Entry, error) {
	row := db.conn.QueryRow(`
		SELECT `+entryColumns+` FROM entries e
		JOIN restaurants r ON e.restaurant_id = r.id
		WHERE e.id = ?
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Entry not found
		}
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return e, nil
}

// EntriesForRestaurant retrieves the most recent entries for a restaurant.
func (db *DB) EntriesForRestaurant(restaurantID int64, limit int) ([]domain.Entry, error) {
	rows, err := db.conn.Query(`
		SELECT `+entryColumns+` FROM entries e
		JOIN restaurants r ON e.restaurant_id = r.id
		WHERE e.restaurant_id = ?
		ORDER BY e.created_at DESC LIMIT ?
	`, restaurantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for restaurant %d: %w", restaurantID, err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// SearchFilter narrows a SearchEntries call. Zero values mean the filter
// is not applied.
type SearchFilter struct {
	Cuisine        string
	Sentiment      domain.Sentiment
	UserTelegramID int64
	Term           string
	Since          time.Time
	Until          time.Time
	Limit          int
}

// SearchEntries retrieves entries matching the filter, newest first.
// The free-text term matches restaurant name, dish and notes.
func (db *DB) SearchEntries(f SearchFilter) ([]domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM entries e
		JOIN restaurants r ON e.restaurant_id = r.id WHERE 1=1`
	var params []any

	if f.Cuisine != "" {
		query += " AND LOWER(r.cuisine) LIKE LOWER(?)"
		params = append(params, "%"+f.Cuisine+"%")
	}
	if f.Sentiment != "" {
		query += " AND e.sentiment = ?"
		params = append(params, f.Sentiment)
	}
	if f.UserTelegramID != 0 {
		query += " AND e.user_telegram_id = ?"
		params = append(params, f.UserTelegramID)
	}
	if f.Term != "" {
		query += " AND (LOWER(r.name) LIKE LOWER(?) OR LOWER(e.dish) LIKE LOWER(?) OR LOWER(e.notes) LIKE LOWER(?))"
		term := "%" + f.Term + "%"
		params = append(params, term, term, term)
	}
	if !f.Since.IsZero() {
		query += " AND e.created_at >= ?"
		params = append(params, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += " AND e.created_at < ?"
		params = append(params, f.Until.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " ORDER BY e.created_at DESC LIMIT ?"
	params = append(params, limit)

	rows, err := db.conn.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// UpdateEntry applies the non-nil detail fields to an existing entry.
func (db *DB) UpdateEntry(id int64, u domain.EntryUpdate) (*domain.Entry, error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate entry update: %w", err)
	}

	var clauses []string
	var params []any
	set := func(column string, value any) {
		clauses = append(clauses, column+" = ?")
		params = append(params, value)
	}
	if u.Dish != nil {
		set("dish", u.Dish)
	}
	if u.ExactOrder != nil {
		set("exact_order", u.ExactOrder)
	}
	if u.Rating != nil {
		set("rating", u.Rating)
	}
	if u.Notes != nil {
		set("notes", u.Notes)
	}
	if u.Sentiment != nil {
		set("sentiment", u.Sentiment)
	}
	if u.SentimentScore != nil {
		set("sentiment_score", u.SentimentScore)
	}
	if u.Tags != nil {
		tags, err := encodeTags(u.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		set("tags", tags)
	}

	if len(clauses) > 0 {
		res, err := db.conn.Exec(
			"UPDATE entries SET "+strings.Join(clauses, ", ")+" WHERE id = ?",
			append(params, id)...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update entry %d: %w", id, classify(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected for entry %d: %w", id, err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("failed to update entry %d: %w", id, ErrEntryNotFound)
		}
	}
	return db.GetEntry(id)
}

// DistinctCuisines retrieves the distinct cuisines of saved restaurants.
func (db *DB) DistinctCuisines() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT cuisine FROM restaurants
		WHERE cuisine IS NOT NULL AND cuisine != '' ORDER BY cuisine
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct cuisines: %w", err)
	}
	defer rows.Close()

	var cuisines []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan cuisine row: %w", err)
		}
		cuisines = append(cuisines, c)
	}
	return cuisines, rows.Err()
}

// RandomPositiveRestaurant picks a random restaurant that has at least one
// positive entry, optionally filtered by cuisine and excluding already
// suggested IDs. It returns the restaurant with its most recent entries,
// or nils when nothing qualifies.
func (db *DB) RandomPositiveRestaurant(cuisine string, excludeIDs []int64) (*domain.Restaurant, []domain.Entry, error) {
	query := `
		SELECT DISTINCT ` + prefixColumns("r.", restaurantColumns) + ` FROM restaurants r
		JOIN entries e ON r.id = e.restaurant_id
		WHERE e.sentiment = 'positive'`
	var params []any

	if cuisine != "" {
		query += " AND LOWER(r.cuisine) LIKE LOWER(?)"
		params = append(params, "%"+cuisine+"%")
	}
	if len(excludeIDs) > 0 {
		query += " AND r.id NOT IN (?" + strings.Repeat(", ?", len(excludeIDs)-1) + ")"
		for _, id := range excludeIDs {
			params = append(params, id)
		}
	}
	query += " ORDER BY RANDOM() LIMIT 1"

	row := db.conn.QueryRow(query, params...)
	r, err := scanRestaurant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil // Nothing qualifies
		}
		return nil, nil, fmt.Errorf("failed to pick a positive restaurant: %w", err)
	}

	entries, err := db.EntriesForRestaurant(r.ID, 5)
	if err != nil {
		return nil, nil, err
	}
	return r, entries, nil
}

func collectEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// encodeTags serialises tags to the opaque JSON text column. Empty tag
// lists are stored as NULL, matching rows written before tags existed.
func encodeTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func decodeTags(col sql.NullString) ([]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(col.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

// prefixColumns qualifies a bare column list with a table alias.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
