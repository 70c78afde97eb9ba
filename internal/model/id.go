package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string for simulation identifiers. ULIDs sort
// lexicographically by creation time, which keeps run listings in
// submission order.
func NewID() string {
	return ulid.Make().String()
}
