package store

import (
	"fmt"
	"strconv"
)

// Record wraps an entity with the unix time of its last upsert.
type Record[T any] struct {
	// Update is the unix timestamp (seconds) of the last upsert.
	Update int64 `json:"update"`
	// Data is the entity itself.
	Data T `json:"data"`
}

// Size is a pixel size encoded as [width, height].
type Size [2]int

// Width returns the horizontal pixel count.
func (s Size) Width() int { return s[0] }

// Height returns the vertical pixel count.
func (s Size) Height() int { return s[1] }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s[0], s[1]) }

// File is one original asset on disk, keyed by its filename.
type File struct {
	ID            int    `json:"id"`
	Part          int    `json:"part"`
	Size          Size   `json:"size"`
	Ext           string `json:"ext"`
	DominantColor string `json:"dominant_color"`
}

// SortKey orders files by image id, then part.
func (f File) SortKey() int {
	return f.ID*1000 + f.Part
}

// Image is one remote illustration, keyed by its stringified id.
type Image struct {
	ID          int      `json:"id"`
	AuthorID    int      `json:"author_id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	SanityLevel int      `json:"sanity_level"`
	XRestrict   int      `json:"x_restrict"`
	Bookmark    int      `json:"bookmark"`
	View        int      `json:"view"`
}

// Author is the creator of one or more images, keyed by its stringified id.
type Author struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
}

// Tag is a remote tag payload, keyed by its name.
type Tag struct {
	Name           string  `json:"name"`
	TranslatedName *string `json:"translated_name"`
}

// FileEntry pairs a file record with its key.
type FileEntry struct {
	Name   string
	Record Record[File]
}

// Stats holds entity counts for each collection.
type Stats struct {
	Files   int `json:"files"`
	Images  int `json:"images"`
	Authors int `json:"authors"`
	Tags    int `json:"tags"`
}

// PruneResult lists the keys removed by a prune, per collection.
type PruneResult struct {
	Images  []string `json:"images"`
	Authors []string `json:"authors"`
	Tags    []string `json:"tags"`
}

// Empty reports whether nothing was pruned.
func (r PruneResult) Empty() bool {
	return len(r.Images) == 0 && len(r.Authors) == 0 && len(r.Tags) == 0
}

// FileName builds the "{id}_p{part}.{ext}" filename of an original asset.
func FileName(id, part int, ext string) string {
	return strconv.Itoa(id) + "_p" + strconv.Itoa(part) + "." + ext
}
