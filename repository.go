package paranoia

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Repository gives a model type both soft and hard delete operations. The
// marker column is resolved once, when the repository is built, so Enable
// must run before NewRepository.
type Repository[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
	marker *schema.Field // nil when soft delete is off for T
	logger *zap.Logger
}

func NewRepository[T any](db *gorm.DB) (*Repository[T], error) {
	sch, err := parseSchema(db, new(T))
	if err != nil {
		return nil, err
	}

	r := &Repository[T]{db: db, schema: sch, logger: zap.NewNop()}
	if p, err := From(db); err == nil {
		r.logger = p.logger
		if column, ok := p.registry.lookup(sch.ModelType); ok {
			r.marker = sch.LookUpField(column)
		}
	}
	return r, nil
}

// Paranoid reports whether soft delete is enabled for T.
func (r *Repository[T]) Paranoid() bool {
	return r.marker != nil
}

// Column returns the marker column, or "" for a plain model.
func (r *Repository[T]) Column() string {
	if r.marker == nil {
		return ""
	}
	return r.marker.DBName
}

// Query starts a statement on T's table in the given mode.
func (r *Repository[T]) Query(ctx context.Context, mode Mode) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(new(T))
	switch mode {
	case ModeWithDeleted:
		return WithDeleted(tx)
	case ModeOnlyDeleted:
		return OnlyDeleted(tx)
	}
	return tx
}

func (r *Repository[T]) Create(ctx context.Context, rec *T) error {
	if isFrozen(rec) {
		return ErrFrozen
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository[T]) Save(ctx context.Context, rec *T) error {
	if isFrozen(rec) {
		return ErrFrozen
	}
	// a record loaded with FindDeleted is saved in place
	return r.db.WithContext(ctx).Unscoped().Save(rec).Error
}

// Find lists active records matching conds.
func (r *Repository[T]) Find(ctx context.Context, conds ...interface{}) ([]T, error) {
	var out []T
	if err := r.Query(ctx, ModeScoped).Find(&out, conds...).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// First loads an active record by primary key.
func (r *Repository[T]) First(ctx context.Context, id interface{}) (*T, error) {
	out := new(T)
	if err := r.Query(ctx, ModeScoped).First(out, id).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository[T]) Count(ctx context.Context, mode Mode) (int64, error) {
	var n int64
	err := r.Query(ctx, mode).Count(&n).Error
	return n, err
}

// Exists reports whether a row with primary key id is visible in mode.
func (r *Repository[T]) Exists(ctx context.Context, mode Mode, id interface{}) (bool, error) {
	var n int64
	err := r.Query(ctx, mode).
		Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}, Value: id}).
		Count(&n).Error
	return n > 0, err
}

// OnlyDeleted lists soft-deleted records.
func (r *Repository[T]) OnlyDeleted(ctx context.Context) ([]T, error) {
	if r.marker == nil {
		return nil, ErrNotParanoid
	}
	var out []T
	if err := r.Query(ctx, ModeOnlyDeleted).Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}}).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindDeleted loads a soft-deleted record by primary key.
func (r *Repository[T]) FindDeleted(ctx context.Context, id interface{}) (*T, error) {
	if r.marker == nil {
		return nil, ErrNotParanoid
	}
	out := new(T)
	if err := r.Query(ctx, ModeOnlyDeleted).First(out, id).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsDestroyed is true when rec's in-memory marker is set.
func (r *Repository[T]) IsDestroyed(rec *T) bool {
	if r.marker == nil || rec == nil {
		return false
	}
	_, zero := r.marker.ValueOf(context.Background(), reflect.ValueOf(rec).Elem())
	return !zero
}

// IsDeleted is IsDestroyed.
func (r *Repository[T]) IsDeleted(rec *T) bool {
	return r.IsDestroyed(rec)
}

// Delete soft-deletes rec without running hooks, then freezes it. Deleting a
// record that is already deleted or was never saved writes nothing but still
// freezes it. Plain models are removed physically, unsaved ones are only
// frozen.
func (r *Repository[T]) Delete(ctx context.Context, rec *T) error {
	if r.marker == nil {
		if r.persisted(ctx, rec) {
			if err := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).Delete(rec).Error; err != nil {
				return err
			}
		}
		freeze(rec)
		return nil
	}

	if err := r.softDelete(r.db.WithContext(ctx), rec); err != nil {
		return err
	}
	freeze(rec)
	return nil
}

// Destroy is Delete wrapped in the model's BeforeDelete and AfterDelete hooks,
// inside one transaction. An error from BeforeDelete cancels the delete.
func (r *Repository[T]) Destroy(ctx context.Context, rec *T) error {
	if r.marker == nil {
		if r.persisted(ctx, rec) {
			if err := r.db.WithContext(ctx).Delete(rec).Error; err != nil {
				return err
			}
		}
		freeze(rec)
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if hook, ok := interface{}(rec).(callbacks.BeforeDeleteInterface); ok {
			if err := hook.BeforeDelete(tx); err != nil {
				return err
			}
		}
		if err := r.softDelete(tx, rec); err != nil {
			return err
		}
		if hook, ok := interface{}(rec).(callbacks.AfterDeleteInterface); ok {
			return hook.AfterDelete(tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	freeze(rec)
	return nil
}

func (r *Repository[T]) softDelete(tx *gorm.DB, rec *T) error {
	ctx := tx.Statement.Context
	if r.IsDestroyed(rec) || !r.persisted(ctx, rec) {
		r.logger.Debug("soft delete skipped",
			zap.String("table", r.schema.Table),
			zap.Bool("deleted", r.IsDestroyed(rec)))
		return nil
	}

	now := tx.NowFunc()
	if err := tx.Model(rec).UpdateColumn(r.marker.DBName, now).Error; err != nil {
		return fmt.Errorf("paranoia: soft delete %s: %w", r.schema.Table, err)
	}
	if err := r.marker.Set(ctx, reflect.ValueOf(rec).Elem(), now); err != nil {
		return err
	}

	r.logger.Debug("soft deleted",
		zap.String("table", r.schema.Table),
		zap.String("column", r.marker.DBName))
	return nil
}

// Restore clears rec's marker. A frozen instance can't be restored; load the
// row again with FindDeleted first.
func (r *Repository[T]) Restore(ctx context.Context, rec *T) error {
	if r.marker == nil {
		return ErrNotParanoid
	}
	if isFrozen(rec) {
		return ErrFrozen
	}
	if !r.persisted(ctx, rec) {
		return ErrNotPersisted
	}

	if err := r.db.WithContext(ctx).Unscoped().Model(rec).UpdateColumn(r.marker.DBName, nil).Error; err != nil {
		return fmt.Errorf("paranoia: restore %s: %w", r.schema.Table, err)
	}
	if err := r.marker.Set(ctx, reflect.ValueOf(rec).Elem(), nil); err != nil {
		return err
	}

	r.logger.Debug("restored",
		zap.String("table", r.schema.Table),
		zap.String("column", r.marker.DBName))
	return nil
}

// HardDelete removes rec's row without running hooks, whatever its marker.
func (r *Repository[T]) HardDelete(ctx context.Context, rec *T) error {
	return r.hardDelete(ctx, rec, true)
}

// HardDestroy removes rec's row, running gorm's delete hooks.
func (r *Repository[T]) HardDestroy(ctx context.Context, rec *T) error {
	return r.hardDelete(ctx, rec, false)
}

func (r *Repository[T]) hardDelete(ctx context.Context, rec *T, skipHooks bool) error {
	if !r.persisted(ctx, rec) {
		return ErrNotPersisted
	}

	tx := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: skipHooks}).Unscoped()
	if err := tx.Delete(rec).Error; err != nil {
		return fmt.Errorf("paranoia: hard delete %s: %w", r.schema.Table, err)
	}
	freeze(rec)

	r.logger.Debug("hard deleted",
		zap.String("table", r.schema.Table),
		zap.Bool("hooks", !skipHooks))
	return nil
}

// persisted is true when every primary key value of rec is set.
func (r *Repository[T]) persisted(ctx context.Context, rec *T) bool {
	if rec == nil || len(r.schema.PrimaryFields) == 0 {
		return false
	}
	rv := reflect.ValueOf(rec).Elem()
	for _, field := range r.schema.PrimaryFields {
		if _, zero := field.ValueOf(ctx, rv); zero {
			return false
		}
	}
	return true
}
