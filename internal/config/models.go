package config

import "time"

// RouteRecord is the GORM model backing the Postgres route store. A
// route with zero endpoints still exists as a row so its enabled flag
// can be toggled before any endpoint is attached.
type RouteRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	EventName string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_routes_event_name"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (RouteRecord) TableName() string {
	return "routes"
}

// EndpointRecord is one forwarding destination belonging to a route.
type EndpointRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RouteID   uint      `gorm:"not null;index:idx_endpoints_route_id"`
	URL       string    `gorm:"type:varchar(2048);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (EndpointRecord) TableName() string {
	return "endpoints"
}
