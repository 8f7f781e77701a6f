package model

import "github.com/oklog/ulid/v2"

// NewID returns a fresh ULID string. Projects, jobs, and assets all share
// this ID space; the timestamp prefix keeps listings in creation order.
func NewID() string {
	return ulid.Make().String()
}
