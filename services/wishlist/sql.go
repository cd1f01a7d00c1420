package wishlist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"sjsage522/salewatch/internal/extractor"
	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var schemas = map[string]string{
	DriverPostgres: `CREATE TABLE IF NOT EXISTS tracked_items (
		id SERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		current_price DECIMAL(12,2),
		original_price DECIMAL(12,2),
		currency VARCHAR(8) DEFAULT '$',
		is_on_sale BOOLEAN DEFAULT FALSE,
		platform TEXT DEFAULT '',
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS tracked_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		current_price REAL,
		original_price REAL,
		currency TEXT DEFAULT '$',
		is_on_sale BOOLEAN DEFAULT FALSE,
		platform TEXT DEFAULT '',
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// trackedRow mirrors one tracked_items row
type trackedRow struct {
	ID            int64           `db:"id"`
	URL           string          `db:"url"`
	Name          string          `db:"name"`
	CurrentPrice  sql.NullFloat64 `db:"current_price"`
	OriginalPrice sql.NullFloat64 `db:"original_price"`
	Currency      sql.NullString  `db:"currency"`
	IsOnSale      bool            `db:"is_on_sale"`
	Platform      sql.NullString  `db:"platform"`
}

func (r trackedRow) item() listing.TrackedItem {
	item := listing.TrackedItem{
		URL:      r.URL,
		Title:    r.Name,
		Currency: r.Currency.String,
		IsOnSale: r.IsOnSale,
		Platform: r.Platform.String,
	}
	if r.CurrentPrice.Valid {
		item.CurrentPrice = listing.Float(r.CurrentPrice.Float64)
	}
	if r.OriginalPrice.Valid {
		item.OriginalPrice = listing.Float(r.OriginalPrice.Float64)
	}
	if item.Currency == "" {
		item.Currency = listing.DefaultCurrency
	}
	if item.Platform == "" {
		item.Platform = extractor.DetectPlatform(r.URL)
	}
	return item
}

// SQLSource reads tracked items from a Postgres or SQLite database
type SQLSource struct {
	db     *sqlx.DB
	driver string
}

// OpenSQLSource connects to the database named by driver and dsn
func OpenSQLSource(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, errors.NewConfiguration(fmt.Sprintf("unsupported database driver %q", driver), nil)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.NewStorage(driver, "failed to connect", err)
	}
	if driver == DriverSQLite {
		// :memory: databases exist per connection
		db.SetMaxOpenConns(1)
	}
	return &SQLSource{db: db, driver: driver}, nil
}

// Migrate creates the tracked_items table when missing
func (s *SQLSource) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemas[s.driver]); err != nil {
		return errors.NewStorage("tracked_items", "failed to create table", err)
	}
	return nil
}

// Tracked returns the active tracked items ordered by id
func (s *SQLSource) Tracked(ctx context.Context) ([]listing.TrackedItem, error) {
	query := `
		SELECT id, url, name, current_price, original_price, currency, is_on_sale, platform
		FROM tracked_items
		WHERE is_active = TRUE
		ORDER BY id
	`

	var rows []trackedRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.NewStorage("tracked_items", "failed to load tracked items", err)
	}

	items := make([]listing.TrackedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}
	return items, nil
}

// Add inserts or refreshes a tracked item by URL and marks it active
func (s *SQLSource) Add(ctx context.Context, item listing.TrackedItem) error {
	query := `
		INSERT INTO tracked_items (url, name, current_price, original_price, currency, is_on_sale, platform, is_active)
		VALUES (:url, :name, :current_price, :original_price, :currency, :is_on_sale, :platform, TRUE)
		ON CONFLICT (url) DO UPDATE SET
			name = excluded.name,
			current_price = excluded.current_price,
			original_price = excluded.original_price,
			currency = excluded.currency,
			is_on_sale = excluded.is_on_sale,
			platform = excluded.platform,
			is_active = TRUE
	`

	row := trackedRow{
		URL:      item.URL,
		Name:     item.Title,
		Currency: sql.NullString{String: item.Currency, Valid: item.Currency != ""},
		IsOnSale: item.IsOnSale,
		Platform: sql.NullString{String: item.Platform, Valid: item.Platform != ""},
	}
	if item.CurrentPrice != nil {
		row.CurrentPrice = sql.NullFloat64{Float64: *item.CurrentPrice, Valid: true}
	}
	if item.OriginalPrice != nil {
		row.OriginalPrice = sql.NullFloat64{Float64: *item.OriginalPrice, Valid: true}
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.NewStorage(item.URL, "failed to save tracked item", err)
	}
	return nil
}

// Deactivate hides the item with the given URL from Tracked
func (s *SQLSource) Deactivate(ctx context.Context, url string) error {
	query := s.db.Rebind(`UPDATE tracked_items SET is_active = FALSE WHERE url = ?`)
	if _, err := s.db.ExecContext(ctx, query, url); err != nil {
		return errors.NewStorage(url, "failed to deactivate tracked item", err)
	}
	return nil
}

// Close closes the database
func (s *SQLSource) Close() error {
	return s.db.Close()
}
