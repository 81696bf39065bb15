// Package favorite manages the saved routes of a device.
package favorite

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Favorite errors.
var (
	ErrOwnerRequired = errors.New("owner id is required")
)

// Favorite is a saved route between two stations.
type Favorite struct {
	OwnerID   string
	From      string
	To        string
	RouteNo   string
	CreatedAt time.Time
}

// Key identifies a saved route within an owner's list.
type Key struct {
	From    string
	To      string
	RouteNo string
}

// Key returns the identity of the favorite.
func (f Favorite) Key() Key {
	return Key{From: f.From, To: f.To, RouteNo: f.RouteNo}
}

// Input is a saved route as submitted by a client.
type Input struct {
	From    string
	To      string
	RouteNo string
}

// Pair is a station pair with the number of owners that saved it.
type Pair struct {
	From  string
	To    string
	Saves int
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when a saved route is invalid.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
