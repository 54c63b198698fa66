package inventory

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"collection-manager/core/store"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	// Decoders used to read candidate dimensions
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
)

// ErrBadName is returned when a filename does not follow "{imageId}_p{part}.{ext}".
var ErrBadName = errors.New("filename does not match {id}_p{part}.{ext}")

// Entry is one original asset found on disk.
type Entry struct {
	// Name is the filename inside the scanned directory.
	Name string `json:"name"`
	// ImageID is the remote illustration id parsed from the name.
	ImageID int `json:"image_id"`
	// Part is the zero-based page index parsed from the name.
	Part int `json:"part"`
	// Ext is the extension without the dot.
	Ext string `json:"ext"`
	// Bytes is the file size on disk.
	Bytes int64 `json:"bytes"`
}

// Candidate is one of the files competing in a Conflict.
type Candidate struct {
	Entry
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Conflict groups files sharing the same (imageId, part) with different extensions.
type Conflict struct {
	ImageID    int         `json:"image_id"`
	Part       int         `json:"part"`
	Candidates []Candidate `json:"candidates"`
}

// Inventory is the result of a directory scan.
type Inventory struct {
	// Entries holds files with a unique (imageId, part), ordered by id then part.
	Entries []Entry
	// Conflicts holds name collisions that need a decision.
	Conflicts []Conflict
	// Invalid holds names that could not be parsed.
	Invalid []string
	// Ignored holds names matching an ignore pattern.
	Ignored []string
}

// ParseName splits "{imageId}_p{part}.{ext}" into its parts.
func ParseName(name string) (imageID, part int, ext string, err error) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	stem, ext := name[:dot], name[dot+1:]

	idPart, pagePart, ok := strings.Cut(stem, "_p")
	if !ok {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	imageID, err = strconv.Atoi(idPart)
	if err != nil || imageID <= 0 {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	part, err = strconv.Atoi(pagePart)
	if err != nil || part < 0 {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	// Padded or signed numbers would alias another file's identity.
	if store.FileName(imageID, part, ext) != name {
		return 0, 0, "", fmt.Errorf("%w: %q is not canonical", ErrBadName, name)
	}
	return imageID, part, ext, nil
}

// Scanner enumerates original assets in a directory.
type Scanner struct {
	fs     afero.Fs
	ignore []string
}

// NewScanner creates a scanner reading through fs.
// Files whose name matches one of the ignore globs are reported but never parsed.
func NewScanner(fs afero.Fs, ignore ...string) *Scanner {
	return &Scanner{fs: fs, ignore: ignore}
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Scan lists dir and parses every regular file.
// Hidden files and directories are ignored.
func (s *Scanner) Scan(dir string) (*Inventory, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	type identity struct{ id, part int }
	groups := make(map[identity][]Entry)
	var order []identity
	inv := &Inventory{}

	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		if s.ignored(info.Name()) {
			inv.Ignored = append(inv.Ignored, info.Name())
			continue
		}
		id, part, ext, err := ParseName(info.Name())
		if err != nil {
			inv.Invalid = append(inv.Invalid, info.Name())
			continue
		}
		key := identity{id, part}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], Entry{
			Name:    info.Name(),
			ImageID: id,
			Part:    part,
			Ext:     ext,
			Bytes:   info.Size(),
		})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].id != order[j].id {
			return order[i].id < order[j].id
		}
		return order[i].part < order[j].part
	})

	for _, key := range order {
		entries := groups[key]
		if len(entries) == 1 {
			inv.Entries = append(inv.Entries, entries[0])
			continue
		}
		conflict := Conflict{ImageID: key.id, Part: key.part}
		for _, e := range entries {
			c := Candidate{Entry: e}
			c.Width, c.Height, _ = s.Dimensions(filepath.Join(dir, e.Name))
			conflict.Candidates = append(conflict.Candidates, c)
		}
		inv.Conflicts = append(inv.Conflicts, conflict)
	}

	return inv, nil
}

// Dimensions reads the pixel size of an image without decoding its pixels.
func (s *Scanner) Dimensions(path string) (width, height int, err error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read dimensions of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Resolve keeps the candidate chosen by r and deletes every other candidate from dir.
// Out-of-range choices fall back to the first candidate.
func (s *Scanner) Resolve(dir string, c Conflict, r Resolver) (kept Candidate, removed []Candidate, err error) {
	if len(c.Candidates) == 0 {
		return Candidate{}, nil, fmt.Errorf("conflict %d_p%d has no candidates", c.ImageID, c.Part)
	}
	choice := r.Resolve(c)
	if choice < 0 || choice >= len(c.Candidates) {
		choice = 0
	}
	kept = c.Candidates[choice]

	for i, cand := range c.Candidates {
		if i == choice {
			continue
		}
		if rmErr := s.fs.Remove(filepath.Join(dir, cand.Name)); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove %s: %w", cand.Name, rmErr))
			continue
		}
		removed = append(removed, cand)
	}
	return kept, removed, err
}
