package paranoia

import (
	"reflect"
	"sync"
)

// registry maps a model's struct type to its marker column.
type registry struct {
	mu      sync.RWMutex
	columns map[reflect.Type]string
}

func newRegistry() *registry {
	return &registry{columns: make(map[reflect.Type]string)}
}

func (r *registry) set(t reflect.Type, column string) (previous string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced = r.columns[t]
	r.columns[t] = column
	return previous, replaced
}

func (r *registry) lookup(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	column, ok := r.columns[t]
	return column, ok
}

// modelType strips pointers, slices and arrays down to the struct type gorm
// keys its schemas by.
func modelType(value interface{}) reflect.Type {
	var t reflect.Type
	switch v := value.(type) {
	case nil:
		return nil
	case reflect.Type:
		t = v
	case reflect.Value:
		if !v.IsValid() {
			return nil
		}
		t = v.Type()
	default:
		t = reflect.TypeOf(value)
	}

	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}
