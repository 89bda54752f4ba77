package paranoia

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mode selects which rows a query on a registered model sees.
type Mode int

const (
	// ModeScoped hides soft-deleted rows. It is the default.
	ModeScoped Mode = iota
	// ModeWithDeleted returns active and soft-deleted rows.
	ModeWithDeleted
	// ModeOnlyDeleted returns soft-deleted rows only.
	ModeOnlyDeleted
)

func (m Mode) String() string {
	switch m {
	case ModeWithDeleted:
		return "with_deleted"
	case ModeOnlyDeleted:
		return "only_deleted"
	default:
		return "scoped"
	}
}

const (
	scopeClauseName = "PARANOIA"

	// gorm's delete callback ignores the scope expression when checking for a
	// missing WHERE if this key is present.
	softDeleteFlag = "soft_delete_enabled"
)

// Scope carries the query mode on a statement. It renders nothing itself.
type Scope struct {
	Mode Mode
}

// Name returns the clause name
func (s Scope) Name() string {
	return scopeClauseName
}

// Build is a no-op: the callbacks turn the mode into WHERE expressions.
func (s Scope) Build(clause.Builder) {}

// MergeClause keeps the last mode set on the statement
func (s Scope) MergeClause(c *clause.Clause) {
	c.Expression = s
}

// OnlyDeleted restricts a query to soft-deleted rows, ignoring the default
// scope. It can be passed to db.Scopes.
func OnlyDeleted(db *gorm.DB) *gorm.DB {
	return db.Clauses(Scope{Mode: ModeOnlyDeleted})
}

// WithDeleted lifts the default scope without switching the statement to
// Unscoped.
func WithDeleted(db *gorm.DB) *gorm.DB {
	return db.Clauses(Scope{Mode: ModeWithDeleted})
}

func modeOf(stmt *gorm.Statement) Mode {
	if c, ok := stmt.Clauses[scopeClauseName]; ok {
		if s, ok := c.Expression.(Scope); ok {
			return s.Mode
		}
	}
	return ModeScoped
}

func markerColumn(column string) clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: column}
}

// applyScope adds the marker predicate for the statement's mode once.
func applyScope(stmt *gorm.Statement, column string) {
	if _, ok := stmt.Clauses[softDeleteFlag]; ok {
		return
	}

	var expr clause.Expression
	switch modeOf(stmt) {
	case ModeOnlyDeleted:
		expr = clause.Neq{Column: markerColumn(column), Value: nil}
	case ModeWithDeleted:
		return
	default:
		if stmt.Unscoped {
			return
		}
		expr = clause.Eq{Column: markerColumn(column), Value: nil}
	}

	// a lone OR condition would otherwise swallow the marker predicate
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok && len(where.Exprs) >= 1 {
			for _, e := range where.Exprs {
				if orCond, ok := e.(clause.OrConditions); ok && len(orCond.Exprs) == 1 {
					where.Exprs = []clause.Expression{clause.And(where.Exprs...)}
					c.Expression = where
					stmt.Clauses["WHERE"] = c
					break
				}
			}
		}
	}

	stmt.AddClause(clause.Where{Exprs: []clause.Expression{expr}})
	stmt.Clauses[softDeleteFlag] = clause.Clause{}
}
