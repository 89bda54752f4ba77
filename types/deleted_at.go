package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// DeletedAt is a nullable timestamp used as a soft-delete marker.
//
// Unlike gorm.DeletedAt it carries no query or delete clauses of its own, so a
// model holding it is only soft-deleted when its type has been registered with
// paranoia.Enable.
type DeletedAt struct {
	Time  time.Time
	Valid bool
}

// Now returns a valid marker stamped with the current time.
func Now() DeletedAt {
	return DeletedAt{Time: time.Now(), Valid: true}
}

// IsZero reports whether the marker is unset.
func (d DeletedAt) IsZero() bool {
	return !d.Valid
}

// Ptr returns the marker time, or nil when unset.
func (d DeletedAt) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func (DeletedAt) GormDataType() string {
	return "time"
}

// Scan implements sql.Scanner.
func (d *DeletedAt) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Time, d.Valid = time.Time{}, false
	case time.Time:
		d.Time, d.Valid = v, true
	case *time.Time:
		if v == nil {
			d.Time, d.Valid = time.Time{}, false
			return nil
		}
		d.Time, d.Valid = *v, true
	case DeletedAt:
		*d = v
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("types: cannot scan %T into DeletedAt", value)
	}
	return nil
}

// sqlite drivers may hand back the stored text instead of a time.Time.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (d *DeletedAt) parse(s string) error {
	if s == "" {
		d.Time, d.Valid = time.Time{}, false
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time, d.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("types: cannot parse %q as DeletedAt", s)
}

// Value implements driver.Valuer.
func (d DeletedAt) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time, nil
}

// UnmarshalJSON accepts null or a time string.
func (d *DeletedAt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Time, d.Valid = time.Time{}, false
		return nil
	}
	if err := json.Unmarshal(data, &d.Time); err != nil {
		return err
	}
	d.Valid = true
	return nil
}

// MarshalJSON writes null or a time string, never an object.
func (d DeletedAt) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time)
}

// MarshalCBOR encodes the marker the way the SurrealDB client does, so models
// shared with a SurrealDB store carry NONE or a datetime tag.
func (d DeletedAt) MarshalCBOR() ([]byte, error) {
	if !d.Valid {
		customNil := models.CustomNil{}
		return customNil.MarshalCBOR()
	}

	customTime := models.CustomDateTime{
		Time: d.Time,
	}
	return customTime.MarshalCBOR()
}

// UnmarshalCBOR accepts null, undefined, NONE or a SurrealDB datetime.
func (d *DeletedAt) UnmarshalCBOR(data []byte) error {
	// null (0xf6), undefined (0xf7) and SurrealDB NONE (tag 6)
	if len(data) == 0 || data[0] == 0xf6 || data[0] == 0xf7 || data[0] == 0xc6 {
		d.Time, d.Valid = time.Time{}, false
		return nil
	}

	customTime := new(models.CustomDateTime)
	if err := customTime.UnmarshalCBOR(data); err != nil {
		return err
	}

	if customTime.Time.IsZero() {
		d.Time, d.Valid = time.Time{}, false
		return nil
	}

	d.Time = customTime.Time
	d.Valid = true

	return nil
}
