package paranoia

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate runs AutoMigrate for models and then makes sure every registered
// model has its marker column and an index on it.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	p, err := From(db)
	if err != nil {
		// nothing can be registered without the plugin
		return nil
	}

	m := db.Migrator()
	for _, model := range models {
		column, ok := p.Column(model)
		if !ok {
			continue
		}

		sch, err := parseSchema(db, model)
		if err != nil {
			return err
		}

		if !m.HasColumn(model, column) {
			if err := m.AddColumn(model, column); err != nil {
				return fmt.Errorf("paranoia: add marker column %s.%s: %w", sch.Table, column, err)
			}
			p.logger.Info("marker column added",
				zap.String("table", sch.Table),
				zap.String("column", column))
		}

		index := db.NamingStrategy.IndexName(sch.Table, column)
		if m.HasIndex(model, index) {
			continue
		}
		if err := db.Exec("CREATE INDEX ? ON ? (?)",
			clause.Table{Name: index}, clause.Table{Name: sch.Table}, clause.Column{Name: column}).Error; err != nil {
			return fmt.Errorf("paranoia: index marker column %s.%s: %w", sch.Table, column, err)
		}
		p.logger.Info("marker index created",
			zap.String("table", sch.Table),
			zap.String("index", index))
	}
	return nil
}
