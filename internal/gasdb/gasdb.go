package gasdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/rubiojr/gasrank/pkg/geo"
)

const (
	dateLayout                    = "2006-01-02"
	defaultCacheExpirationMinutes = 10
	defaultCacheCleanupMinutes    = 30
	defaultSleepMs                = 200
	defaultCacheSize              = -1024 * 1024 // negative value for pages
	defaultPageSize               = 4096
	lastPriceKey                  = "last_price"
	firstHistoricDate             = "2007-01-01"
)

// ErrNoData is returned when the store holds no snapshot for a request.
var ErrNoData = errors.New("no data available")

// Fetcher is the part of the provider API the store needs to update itself.
type Fetcher interface {
	FetchPrices(ctx context.Context) (*api.GasStationList, error)
	FetchPricesForDate(ctx context.Context, date time.Time) (*api.GasStationList, error)
}

// Storage keeps daily snapshots of the provider feed in SQLite.
type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
	clock clockwork.Clock
	pause time.Duration
}

// Option configures a Storage.
type Option func(*Storage)

// WithClock replaces the wall clock used to date snapshots.
func WithClock(c clockwork.Clock) Option {
	return func(s *Storage) {
		s.clock = c
	}
}

// WithPause sets the delay between requests while backfilling history.
func WithPause(d time.Duration) Option {
	return func(s *Storage) {
		s.pause = d
	}
}

func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger, opts ...Option) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpirationMinutes*time.Minute, defaultCacheCleanupMinutes*time.Minute),
		log:   logger,
		clock: clockwork.NewRealClock(),
		pause: defaultSleepMs * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fuel_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT UNIQUE NOT NULL,
		data BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fuel_prices_date ON fuel_prices(date);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// SavePrices stores a raw provider response for date, replacing any
// snapshot already stored for that day.
func (s *Storage) SavePrices(ctx context.Context, date time.Time, data []byte) error {
	dateStr := date.Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("rollback error", "error", err)
		}
	}()

	_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO fuel_prices (date, data) VALUES (?, ?)", dateStr, data)
	if err != nil {
		return fmt.Errorf("error inserting data: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	// every cached query derives from the snapshots
	s.cache.Flush()

	return nil
}

func (s *Storage) HasDate(ctx context.Context, date time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fuel_prices WHERE date = ?", date.Format(dateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking date existence: %w", err)
	}
	return count > 0, nil
}

// GetAllDates returns all dates present in the fuel_prices table, sorted ascending.
func (s *Storage) GetAllDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date FROM fuel_prices ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("error querying dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("error scanning date: %w", err)
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}
	return dates, nil
}

// MissingDates returns the days between start and end, inclusive, that
// have no snapshot.
func (s *Storage) MissingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	dates, err := s.GetAllDates(ctx)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		have[d.Format(dateLayout)] = struct{}{}
	}

	var missing []time.Time
	for d := truncateDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := have[d.Format(dateLayout)]; !ok {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

func (s *Storage) GetLastPrices(ctx context.Context) (*api.GasStationList, error) {
	if cachedData, found := s.cache.Get(lastPriceKey); found {
		s.log.Debug("Using cached data", "key", lastPriceKey)
		return cachedData.(*api.GasStationList), nil
	}

	var jsonData []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM fuel_prices ORDER BY date DESC LIMIT 1").Scan(&jsonData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	var pricesResponse api.GasStationList
	if err := json.Unmarshal(jsonData, &pricesResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling data: %w", err)
	}

	s.cache.Set(lastPriceKey, &pricesResponse, cache.DefaultExpiration)

	return &pricesResponse, nil
}

// GetLastUpdateDate returns the date of the newest snapshot, or nil when
// the store is empty.
func (s *Storage) GetLastUpdateDate(ctx context.Context) (*time.Time, error) {
	var dateStr string
	err := s.db.QueryRowContext(ctx, "SELECT date FROM fuel_prices ORDER BY date DESC LIMIT 1").Scan(&dateStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying last update date: %w", err)
	}

	lastUpdate, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing date %s: %w", dateStr, err)
	}

	return &lastUpdate, nil
}

func (s *Storage) GetPrices(ctx context.Context, date time.Time) (*api.GasStationList, error) {
	dateStr := date.Format(dateLayout)

	var jsonData []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM fuel_prices WHERE date = ?", dateStr).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for date %s", ErrNoData, dateStr)
		}
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	var pricesResponse api.GasStationList
	if err := json.Unmarshal(jsonData, &pricesResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling data: %w", err)
	}
	return &pricesResponse, nil
}

// Stations returns the newest snapshot converted to geo.Station values.
func (s *Storage) Stations(ctx context.Context) ([]geo.Station, error) {
	prices, err := s.GetLastPrices(ctx)
	if err != nil {
		return nil, err
	}
	return prices.Stations(), nil
}

// NearbyPrices returns the stations of the newest snapshot within distance
// meters of lat, lng.
func (s *Storage) NearbyPrices(ctx context.Context, lat, lng, distance float64) ([]*api.GasStation, error) {
	cacheKey := fmt.Sprintf("nearby_prices_%f_%f_%f", lat, lng, distance)

	if cachedData, found := s.cache.Get(cacheKey); found {
		s.log.Debug("Using cached data", "key", cacheKey)
		return cachedData.([]*api.GasStation), nil
	}
	s.log.Debug("Fetching data from database, cached data not found", "key", cacheKey)

	pricesResponse, err := s.GetLastPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting last price: %w", err)
	}

	nearbyStations := api.Nearby(pricesResponse, lat, lng, distance)
	s.cache.Set(cacheKey, nearbyStations, cache.DefaultExpiration)

	return nearbyStations, nil
}

// Update fetches the current prices and stores them under today's date.
func (s *Storage) Update(ctx context.Context, fetcher Fetcher) error {
	pricesResponse, err := fetcher.FetchPrices(ctx)
	if err != nil {
		return err
	}
	return s.saveList(ctx, s.clock.Now(), pricesResponse)
}

// UpdateAll backfills every missing day since start (2007-01-01 when
// zero) up to yesterday and then stores today's prices. Days the provider
// fails to serve are logged and skipped.
func (s *Storage) UpdateAll(ctx context.Context, fetcher Fetcher, start time.Time) error {
	if start.IsZero() {
		start, _ = time.Parse(dateLayout, firstHistoricDate)
	}
	today := truncateDay(s.clock.Now())
	endDate := today.AddDate(0, 0, -1)

	missing, err := s.MissingDates(ctx, start, endDate)
	if err != nil {
		return err
	}

	for _, date := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}
		day := date.Format(dateLayout)
		s.log.Debug("fetching data for", "date", day)

		pricesResponse, err := fetcher.FetchPricesForDate(ctx, date)
		if err != nil {
			s.log.Debug("Error fetching prices for date", "date", day, "error", err)
			continue
		}

		if err := s.saveList(ctx, date, pricesResponse); err != nil {
			s.log.Debug("error saving data for", "date", day, "error", err)
			continue
		}
		s.log.Debug("Saved data for", "date", day)
		if s.pause > 0 {
			s.clock.Sleep(s.pause)
		}
	}

	pricesResponse, err := fetcher.FetchPrices(ctx)
	if err != nil {
		return fmt.Errorf("error fetching latest data: %w", err)
	}
	if err := s.saveList(ctx, today, pricesResponse); err != nil {
		return fmt.Errorf("error saving data for today: %w", err)
	}

	s.log.Info("Successfully saved data for today", "date", today.Format(dateLayout))
	return nil
}

func (s *Storage) saveList(ctx context.Context, date time.Time, list *api.GasStationList) error {
	if list.ResultadoConsulta != api.ApiResultOK {
		return fmt.Errorf("API returned non-OK result: %s", list.ResultadoConsulta)
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}

	return s.SavePrices(ctx, date, data)
}

// DeleteOldRecords removes snapshots older than daysOld days and returns
// how many were deleted.
func (s *Storage) DeleteOldRecords(ctx context.Context, daysOld int) (int64, error) {
	cutoffDate := s.clock.Now().AddDate(0, 0, -daysOld).Format(dateLayout)
	s.log.Info("Starting cleanup of old records", "cutoff_date", cutoffDate)

	res, err := s.db.ExecContext(ctx, "DELETE FROM fuel_prices WHERE date < ?", cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("error deleting fuel_prices records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted records: %w", err)
	}

	s.cache.Flush()
	s.log.Info("Completed fuel_prices cleanup", "deleted_count", deleted)
	return deleted, nil
}

func (s *Storage) VacuumDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)")
	if err != nil {
		return fmt.Errorf("error performing incremental vacuum: %w", err)
	}

	return nil
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA busy_timeout = 10000;", "busy timeout"},
		{"PRAGMA journal_mode = WAL;", "journal mode"},
		{"PRAGMA auto_vacuum = INCREMENTAL;", "auto vacuum"},
		{"PRAGMA temp_store = FILE;", "temp store"},
		{"PRAGMA mmap_size = 0;", "mmap size"},
		// conservative memory limit (64MB)
		{"PRAGMA soft_heap_limit = 67108864;", "soft heap limit"},
		{"PRAGMA synchronous = NORMAL;", "synchronous"},
		{fmt.Sprintf("PRAGMA cache_size = %d;", defaultCacheSize), "cache size"},
		{fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize), "page size"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.stmt); err != nil {
			return fmt.Errorf("error setting %s: %w", p.what, err)
		}
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
