package schema

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reqtx/internal/errs"
)

// Version is bumped whenever the numbers schema changes shape.
const Version = "1"

// VersionKey names the schema_meta row holding Version.
const VersionKey = "schema_version"

type SchemaMeta struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:key;type:text;uniqueIndex;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}

// RecordVersion upserts the schema version row.
func RecordVersion(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	row := SchemaMeta{Key: VersionKey, Value: Version}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "record schema version")
	}
	return nil
}

func CurrentVersion(ctx context.Context, db *gorm.DB) (string, bool, error) {
	if ctx == nil {
		return "", false, errors.New("context is required")
	}

	var row SchemaMeta
	if err := db.WithContext(ctx).Where("key = ?", VersionKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if !db.Migrator().HasTable(&SchemaMeta{}) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query schema version")
	}
	return row.Value, true, nil
}
