// Package models defines the core data structures for users, heroes and the
// journal entries attached to them.
package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an integer surrogate key. It serializes as a JSON number and accepts
// either a number or a numeric string on input, so clients that keep ids as
// strings are normalized here instead of at every call site.
type ID int64

// ParseID converts a decimal string into a positive ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return ID(n), nil
}

// String returns the decimal form of the id.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// OptionalID is a patch field that tells an absent value from an explicit
// one. Set is true whenever the field appeared in the document; null and 0
// both decode to a zero Value.
type OptionalID struct {
	Set   bool
	Value ID
}

// SetID returns a present OptionalID. SetID(0) clears the stored value.
func SetID(id ID) OptionalID { return OptionalID{Set: true, Value: id} }

// UnmarshalJSON marks the field present and decodes it like ID.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	if err := o.Value.UnmarshalJSON(data); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// MarshalJSON writes null for an absent or cleared value.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(int64(o.Value))
}

// UnmarshalJSON accepts 12, "12" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*id = ID(n)
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) { return int64(id), nil }

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*id = ID(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan id: %w", err)
		}
		*id = ID(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan id: %w", err)
		}
		*id = ID(n)
	case nil:
		*id = 0
	default:
		return fmt.Errorf("scan id: unsupported type %T", src)
	}
	return nil
}

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID ID `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// Email is the unique contact address.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the password. It is never serialized.
	PasswordHash []byte `json:"-"`
	// CreatedAt and UpdatedAt are server-assigned.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthSession binds a session id carried by the client cookie to a user.
type AuthSession struct {
	ID        string
	UserID    ID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s AuthSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
