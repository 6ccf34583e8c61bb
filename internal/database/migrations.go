package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationDedupeTagNames = "2026-05-12_dedupe_tag_names"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationDedupeTagNames, apply: dedupeTagNames},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// dedupeTagNames collapses tag rows that share a name onto the lowest
// surviving id and repoints join rows. Databases written before the unique
// name index existed can hold such duplicates.
func dedupeTagNames(db *gorm.DB) error {
	if !db.Migrator().HasTable("tags") {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		repoint := `UPDATE OR IGNORE note_tags
			SET tag_id = (
				SELECT MIN(canonical.id) FROM tags canonical
				WHERE canonical.name = (SELECT duplicate.name FROM tags duplicate WHERE duplicate.id = note_tags.tag_id)
			)
			WHERE tag_id NOT IN (SELECT MIN(id) FROM tags GROUP BY name);`
		if err := tx.Exec(repoint).Error; err != nil {
			return err
		}
		dropOrphanedLinks := `DELETE FROM note_tags
			WHERE tag_id NOT IN (SELECT MIN(id) FROM tags GROUP BY name);`
		if err := tx.Exec(dropOrphanedLinks).Error; err != nil {
			return err
		}
		dropDuplicates := `DELETE FROM tags
			WHERE id NOT IN (SELECT MIN(id) FROM tags GROUP BY name);`
		return tx.Exec(dropDuplicates).Error
	})
}
