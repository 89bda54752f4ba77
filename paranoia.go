// Package paranoia adds soft delete to gorm models.
//
// A registered model is never removed by Delete: its marker column is stamped
// with the current time instead, and ordinary queries skip stamped rows.
//
//	db.Use(paranoia.New(paranoia.Config{Logger: logger}))
//	paranoia.Enable(db, &Note{})                              // deleted_at
//	paranoia.Enable(db, &Invoice{}, paranoia.With("voided_at"))
//
// Physical deletion stays available through Unscoped or Repository.HardDelete.
package paranoia

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	// PluginName is the key the plugin is stored under in gorm.Config.Plugins.
	PluginName = "paranoia"

	// DefaultColumn is the marker column used when Enable is called without With.
	DefaultColumn = "deleted_at"
)

var (
	ErrNotInstalled   = errors.New("paranoia: plugin is not installed on this gorm.DB")
	ErrMarkerNotFound = errors.New("paranoia: marker field not found")
	ErrMarkerType     = errors.New("paranoia: marker field is not a time")
	ErrNotParanoid    = errors.New("paranoia: soft delete is not enabled for this model")
	ErrFrozen         = errors.New("paranoia: can't modify frozen record")
	ErrNotPersisted   = errors.New("paranoia: record has no primary key value")
)

type Config struct {
	Logger *zap.Logger
	// DefaultColumn overrides the package DefaultColumn for this plugin.
	DefaultColumn string
}

// Plugin is a gorm.Plugin holding the marker column of every registered model.
type Plugin struct {
	logger        *zap.Logger
	defaultColumn string
	registry      *registry
}

func New(cfg Config) *Plugin {
	p := &Plugin{
		logger:        cfg.Logger,
		defaultColumn: cfg.DefaultColumn,
		registry:      newRegistry(),
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.defaultColumn == "" {
		p.defaultColumn = DefaultColumn
	}
	return p
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	return RegisterCallbacks(db, p)
}

type options struct {
	column string
}

// Option configures a single Enable call.
type Option func(*options)

// With sets the marker column. Both the Go field name and the column name are
// accepted.
func With(column string) Option {
	return func(o *options) {
		o.column = column
	}
}

// Enable turns on soft delete for model's type. The marker must be a nullable
// time: types.DeletedAt, *time.Time or sql.NullTime.
func (p *Plugin) Enable(db *gorm.DB, model interface{}, opts ...Option) error {
	o := options{column: p.defaultColumn}
	for _, opt := range opts {
		opt(&o)
	}

	sch, err := parseSchema(db, model)
	if err != nil {
		return err
	}

	field := sch.LookUpField(o.column)
	if field == nil || field.DBName == "" {
		return fmt.Errorf("%w: %s has no field %q", ErrMarkerNotFound, sch.Name, o.column)
	}
	if field.DataType != schema.Time && field.GORMDataType != schema.Time {
		return fmt.Errorf("%w: %s.%s is %s", ErrMarkerType, sch.Name, field.Name, field.FieldType)
	}

	if previous, replaced := p.registry.set(sch.ModelType, field.DBName); replaced {
		p.logger.Warn("soft delete re-enabled",
			zap.String("model", sch.Name),
			zap.String("previous_column", previous),
			zap.String("column", field.DBName))
		return nil
	}

	p.logger.Info("soft delete enabled",
		zap.String("model", sch.Name),
		zap.String("table", sch.Table),
		zap.String("column", field.DBName))
	return nil
}

// Enabled reports whether soft delete is on for the type of model. model may
// be a value, a pointer, a slice or a reflect.Type.
func (p *Plugin) Enabled(model interface{}) bool {
	_, ok := p.registry.lookup(modelType(model))
	return ok
}

// Column returns the marker column registered for model.
func (p *Plugin) Column(model interface{}) (string, bool) {
	return p.registry.lookup(modelType(model))
}

// From returns the plugin installed on db.
func From(db *gorm.DB) (*Plugin, error) {
	if db == nil || db.Config == nil {
		return nil, ErrNotInstalled
	}
	p, ok := db.Config.Plugins[PluginName].(*Plugin)
	if !ok {
		return nil, ErrNotInstalled
	}
	return p, nil
}

// Enable turns on soft delete for model using the plugin installed on db.
func Enable(db *gorm.DB, model interface{}, opts ...Option) error {
	p, err := From(db)
	if err != nil {
		return err
	}
	return p.Enable(db, model, opts...)
}

// IsEnabled is false for every model until Enable has been called for it.
func IsEnabled(db *gorm.DB, model interface{}) bool {
	p, err := From(db)
	if err != nil {
		return false
	}
	return p.Enabled(model)
}

func parseSchema(db *gorm.DB, model interface{}) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("paranoia: parse %T: %w", model, err)
	}
	return stmt.Schema, nil
}
