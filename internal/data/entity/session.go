package entity

import "time"

// Session is an anonymous seat-selection identity. It never expires;
// only the holds it places do.
type Session struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
