package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column describes one column of a table.
type Column struct {
	Name string
	Type string
}

// TableColumns lists the columns of table with lower-cased names and types.
// A missing table yields an empty list.
func TableColumns(db *gorm.DB, table string) ([]Column, error) {
	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		if !db.Migrator().HasTable(table) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}
	columns := make([]Column, 0, len(types))
	for _, ct := range types {
		columns = append(columns, Column{
			Name: strings.ToLower(ct.Name()),
			Type: strings.ToLower(ct.DatabaseTypeName()),
		})
	}
	return columns, nil
}

// MissingColumns returns the expected column names absent from table.
func MissingColumns(db *gorm.DB, table string, expected []string) ([]string, error) {
	columns, err := TableColumns(db, table)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c.Name] = struct{}{}
	}
	var missing []string
	for _, name := range expected {
		if _, ok := present[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
