// Package domain defines the gateway's own persistence models and static
// lookup tables. Business entities (courses, bookings, users) live in the
// downstream services and are never modeled here.
package domain

import "time"

// Idempotency is the stored outcome of a completed unsafe request, keyed by
// (user_id, route, key). user_id holds the caller scope, a fingerprint of the
// bearer token that made the request. A retry carrying the same key is answered with the
// stored status and body instead of reaching the downstream service again.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_route_key,priority:1"`
	Route     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_route_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_route_key,priority:3"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      []byte    `gorm:"NOT NULL"`
	CreatedAt time.Time `gorm:"NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
