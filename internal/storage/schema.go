package storage

const schema = `
-- The 'restaurants' table holds one row per establishment, optionally
-- enriched with Places data.
CREATE TABLE IF NOT EXISTS restaurants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    google_place_id TEXT UNIQUE,
    address TEXT,
    latitude REAL,
    longitude REAL,
    cuisine TEXT,
    price_level INTEGER, -- 0-4, checked at the application boundary
    dine_in BOOLEAN DEFAULT 1,
    takeout BOOLEAN DEFAULT 0,
    delivery BOOLEAN DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- The 'entries' table holds one row per reported dining experience.
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    restaurant_id INTEGER NOT NULL,
    user_name TEXT,
    user_telegram_id INTEGER,
    dish TEXT,
    exact_order TEXT,
    rating REAL,
    notes TEXT,
    sentiment TEXT CHECK(sentiment IN ('positive', 'negative', 'neutral', 'mixed')),
    sentiment_score REAL, -- -1.0 to 1.0, checked at the application boundary
    tags TEXT, -- JSON array of strings
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY(restaurant_id) REFERENCES restaurants(id)
);

CREATE INDEX IF NOT EXISTS idx_restaurants_name ON restaurants(name);
CREATE INDEX IF NOT EXISTS idx_restaurants_cuisine ON restaurants(cuisine);
CREATE INDEX IF NOT EXISTS idx_entries_restaurant_id ON entries(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_entries_sentiment ON entries(sentiment);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`
