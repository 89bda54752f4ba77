package paranoia

import (
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

func RegisterCallbacks(db *gorm.DB, p *Plugin) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("paranoia:query", p.ScopeCallback); err != nil {
		return err
	}

	// Row
	if err := db.Callback().Row().Before("gorm:row").Register("paranoia:row", p.ScopeCallback); err != nil {
		return err
	}

	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("paranoia:delete", p.DeleteCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:after_delete").Register("paranoia:freeze", FreezeCallback); err != nil {
		return err
	}

	// Update, Create
	if err := db.Callback().Update().Before("gorm:update").Register("paranoia:update", p.ScopeCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("paranoia:guard", GuardCallback); err != nil {
		return err
	}
	return db.Callback().Create().Before("gorm:create").Register("paranoia:guard", GuardCallback)
}

// ScopeCallback hides soft-deleted rows of registered models from queries and
// bulk updates.
func (p *Plugin) ScopeCallback(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}

	column, ok := p.registry.lookup(db.Statement.Schema.ModelType)
	if !ok {
		return
	}
	applyScope(db.Statement, column)
}

// DeleteCallback rewrites DELETE into an UPDATE of the marker column for
// registered models. gorm:delete then executes the prepared statement.
func (p *Plugin) DeleteCallback(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil || stmt.Unscoped || stmt.SQL.Len() > 0 {
		return
	}

	column, ok := p.registry.lookup(stmt.Schema.ModelType)
	if !ok {
		return
	}

	now := db.NowFunc()
	stmt.AddClause(clause.Set{{Column: clause.Column{Name: column}, Value: now}})
	if stmt.ReflectValue.CanAddr() {
		stmt.SetColumn(column, now, true)
	}

	if stmt.ReflectValue.IsValid() {
		_, queryValues := schema.GetIdentityFieldValuesMap(stmt.Context, stmt.ReflectValue, stmt.Schema.PrimaryFields)
		pk, values := schema.ToQueryValues(stmt.Table, stmt.Schema.PrimaryFieldDBNames, queryValues)
		if len(values) > 0 {
			stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.IN{Column: pk, Values: values}}})
		}
	}

	if _, ok := stmt.Clauses["WHERE"]; !ok && !db.AllowGlobalUpdate {
		db.AddError(gorm.ErrMissingWhereClause)
		return
	}

	applyScope(stmt, column)
	stmt.AddClauseIfNotExists(clause.Update{})
	stmt.Build(db.Callback().Update().Clauses...)

	p.logger.Debug("soft delete",
		zap.String("table", stmt.Table),
		zap.String("column", column))
}

// FreezeCallback freezes the records a successful delete was called with.
func FreezeCallback(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	freezeValue(db.Statement.ReflectValue)
}

// GuardCallback rejects writes through a frozen record.
func GuardCallback(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	if isFrozen(db.Statement.Model) || isFrozen(db.Statement.Dest) {
		db.AddError(ErrFrozen)
	}
}

func freezeValue(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			freezeValue(reflect.Indirect(rv.Index(i)))
		}
	case reflect.Struct:
		if rv.CanAddr() {
			freeze(rv.Addr().Interface())
		}
	}
}
