package store

import (
	"github.com/hollowbyte/discord-bridge/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres handles route table persistence using PostgreSQL with GORM.
// It is an alternative to File for operators who manage routes through
// a database rather than a checked-in YAML file.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres creates a new database-backed route store. It
// automatically creates the required tables if they don't exist.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	store := &Postgres{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Postgres) migrate() error {
	return s.db.AutoMigrate(&config.RouteRecord{}, &config.EndpointRecord{})
}

// Load reads the route table from the database, ordered by event name
// for deterministic output.
func (s *Postgres) Load() ([]config.Route, error) {
	var records []config.RouteRecord
	if err := s.db.Order("event_name ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	routes := make([]config.Route, 0, len(records))
	for _, r := range records {
		var endpoints []config.EndpointRecord
		if err := s.db.Where("route_id = ?", r.ID).Order("id ASC").Find(&endpoints).Error; err != nil {
			return nil, err
		}

		urls := make([]string, len(endpoints))
		for i, e := range endpoints {
			urls[i] = e.URL
		}

		routes = append(routes, config.Route{
			EventName: r.EventName,
			Enabled:   r.Enabled,
			Endpoints: urls,
		})
	}
	return routes, nil
}

// Save replaces the route table in the database with routes, inside a
// single transaction.
func (s *Postgres) Save(routes []config.Route) error {
	for i := range routes {
		if err := routes[i].Validate(); err != nil {
			return err
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM endpoints").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM routes").Error; err != nil {
			return err
		}

		for _, route := range routes {
			record := config.RouteRecord{EventName: route.EventName, Enabled: route.Enabled}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			for _, endpoint := range route.Endpoints {
				if err := tx.Create(&config.EndpointRecord{RouteID: record.ID, URL: endpoint}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the database connection.
func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
