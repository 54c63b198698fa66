package catalog

import (
	"encoding/json"
	"fmt"

	"collection-manager/core/reconcile"
	"collection-manager/core/store"
)

// TableName is the catalog table.
const TableName = "collection_items"

// Item is one row of the catalog.
type Item struct {
	ImageID       int    `gorm:"column:image_id;primaryKey;autoIncrement:false"`
	Part          int    `gorm:"column:part;primaryKey;autoIncrement:false"`
	Title         string `gorm:"column:title;size:255"`
	Width         int    `gorm:"column:width"`
	Height        int    `gorm:"column:height"`
	Ext           string `gorm:"column:ext;size:8"`
	AuthorID      int    `gorm:"column:author_id;index"`
	AuthorName    string `gorm:"column:author_name;size:255"`
	AuthorAccount string `gorm:"column:author_account;size:255"`
	// Tags holds the JSON encoded tag list.
	Tags          string `gorm:"column:tags;type:text"`
	PublishedAt   string `gorm:"column:published_at;size:32"`
	SanityLevel   int    `gorm:"column:sanity_level;index"`
	XRestrict     int    `gorm:"column:x_restrict"`
	Bookmark      int    `gorm:"column:bookmark"`
	View          int    `gorm:"column:view"`
	DominantColor string `gorm:"column:dominant_color;size:7"`
}

// TableName implements gorm's tabler.
func (Item) TableName() string {
	return TableName
}

// TagList decodes the stored tags.
func (i Item) TagList() ([]store.Tag, error) {
	var tags []store.Tag
	if i.Tags == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(i.Tags), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of %d_p%d: %w", i.ImageID, i.Part, err)
	}
	return tags, nil
}

// FromRecord converts one export record into a row.
func FromRecord(r reconcile.ExportRecord) (Item, error) {
	tags := r.Tags
	if tags == nil {
		tags = []store.Tag{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return Item{}, fmt.Errorf("failed to encode tags of %d_p%d: %w", r.ID, r.Part, err)
	}
	return Item{
		ImageID:       r.ID,
		Part:          r.Part,
		Title:         r.Title,
		Width:         r.Size[0],
		Height:        r.Size[1],
		Ext:           r.Ext,
		AuthorID:      r.Author.ID,
		AuthorName:    r.Author.Name,
		AuthorAccount: r.Author.Account,
		Tags:          string(encoded),
		PublishedAt:   r.CreatedAt,
		SanityLevel:   r.SanityLevel,
		XRestrict:     r.XRestrict,
		Bookmark:      r.Bookmark,
		View:          r.View,
		DominantColor: r.DominantColor,
	}, nil
}

type itemKey struct {
	ImageID int
	Part    int
}
