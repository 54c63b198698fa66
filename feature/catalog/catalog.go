package catalog

import (
	"context"
	"fmt"

	"collection-manager/core/database"
	"collection-manager/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 200

// Result summarizes one catalog sync.
type Result struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

// Catalog mirrors the export view into collection_items.
type Catalog struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a catalog over db.
func New(db *gorm.DB, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{db: db, logger: logger}
}

// Migrate creates or updates the catalog table.
func (c *Catalog) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	return nil
}

// Columns returns the column names the Item model maps to.
func (c *Catalog) Columns() ([]string, error) {
	stmt := &gorm.Statement{DB: c.db}
	if err := stmt.Parse(&Item{}); err != nil {
		return nil, fmt.Errorf("failed to parse catalog model: %w", err)
	}
	return stmt.Schema.DBNames, nil
}

// Verify returns the model columns missing from the live table.
func (c *Catalog) Verify(ctx context.Context) ([]string, error) {
	expected, err := c.Columns()
	if err != nil {
		return nil, err
	}
	missing, err := database.MissingColumns(c.db.WithContext(ctx), TableName, expected)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		c.logger.Warn("Catalog schema is missing columns", zap.Strings("columns", missing))
	}
	return missing, nil
}

// Sync upserts every record and deletes rows that are no longer present.
// The whole sync runs in one transaction.
func (c *Catalog) Sync(ctx context.Context, records []reconcile.ExportRecord) (*Result, error) {
	items := make([]Item, 0, len(records))
	wanted := make(map[itemKey]struct{}, len(records))
	for _, r := range records {
		item, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		key := itemKey{ImageID: item.ImageID, Part: item.Part}
		if _, dup := wanted[key]; dup {
			return nil, fmt.Errorf("duplicate record %d_p%d", item.ImageID, item.Part)
		}
		wanted[key] = struct{}{}
		items = append(items, item)
	}

	result := &Result{}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(items) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&items, batchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert catalog rows: %w", err)
			}
			result.Upserted = len(items)
		}

		var existing []itemKey
		if err := tx.Model(&Item{}).Select("image_id", "part").Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to list catalog rows: %w", err)
		}

		for _, key := range existing {
			if _, ok := wanted[key]; ok {
				continue
			}
			res := tx.Where("image_id = ? AND part = ?", key.ImageID, key.Part).Delete(&Item{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete catalog row %d_p%d: %w", key.ImageID, key.Part, res.Error)
			}
			result.Deleted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Catalog synced",
		zap.Int("upserted", result.Upserted),
		zap.Int("deleted", result.Deleted),
	)
	return result, nil
}

// Count returns the number of catalog rows.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&Item{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count catalog rows: %w", err)
	}
	return n, nil
}
