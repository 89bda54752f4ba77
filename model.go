package paranoia

import (
	"time"

	"github.com/dailaim/paranoia-gorm/types"
)

// Model a basic GoLang struct which includes the following fields: ID, CreatedAt, UpdatedAt, DeletedAt
// It may be embedded into your model or you may build your own model without it
//
//	type User struct {
//	  paranoia.Model
//	}
//
// Embedding Model does not enable soft delete; call Enable for the type.
type Model struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt types.DeletedAt `gorm:"index" json:"deleted_at"`
	Freezer   `gorm:"-" json:"-"`
}

// Freezable records reject further writes once deleted.
type Freezable interface {
	Freeze()
	IsFrozen() bool
}

// Freezer implements Freezable. The flag lives on the in-memory value only;
// a fresh load of the same row starts unfrozen.
type Freezer struct {
	frozen bool
}

func (f *Freezer) Freeze() {
	f.frozen = true
}

func (f *Freezer) IsFrozen() bool {
	return f.frozen
}

func freeze(v interface{}) {
	if f, ok := v.(Freezable); ok {
		f.Freeze()
	}
}

func isFrozen(v interface{}) bool {
	f, ok := v.(Freezable)
	return ok && f.IsFrozen()
}
