package store

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// ErrMalformed is returned by Load when the snapshot cannot be decoded or
// its records are inconsistent with their keys.
var ErrMalformed = errors.New("malformed collection snapshot")

// Store is the in-memory collection of files, images, authors and tags.
// It is safe for concurrent use.
type Store struct {
	fs  afero.Fs
	now func() time.Time

	mu      sync.RWMutex
	files   map[string]Record[File]
	images  map[string]Record[Image]
	authors map[string]Record[Author]
	tags    map[string]Record[Tag]
}

// New creates an empty store persisting through fs.
func New(fs afero.Fs) *Store {
	return &Store{
		fs:      fs,
		now:     time.Now,
		files:   make(map[string]Record[File]),
		images:  make(map[string]Record[Image]),
		authors: make(map[string]Record[Author]),
		tags:    make(map[string]Record[Tag]),
	}
}

// SetClock overrides the time source used to stamp upserts.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) stamp() int64 {
	return s.now().Unix()
}

// UpsertFile creates or replaces a file record.
func (s *Store) UpsertFile(name string, f File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = Record[File]{Update: s.stamp(), Data: f}
}

// UpsertImage creates or replaces an image record.
func (s *Store) UpsertImage(img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.Tags == nil {
		img.Tags = []string{}
	}
	s.images[strconv.Itoa(img.ID)] = Record[Image]{Update: s.stamp(), Data: img}
}

// UpsertAuthor creates or replaces an author record.
func (s *Store) UpsertAuthor(a Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[strconv.Itoa(a.ID)] = Record[Author]{Update: s.stamp(), Data: a}
}

// UpsertTag creates or replaces a tag record.
func (s *Store) UpsertTag(t Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[t.Name] = Record[Tag]{Update: s.stamp(), Data: t}
}

// UpdateFile applies fn to an existing file record and restamps it.
// It returns false when the file is unknown.
func (s *Store) UpdateFile(name string, fn func(f *File)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[name]
	if !ok {
		return false
	}
	fn(&rec.Data)
	rec.Update = s.stamp()
	s.files[name] = rec
	return true
}

// DeleteFile removes a file record. Higher collections are not touched;
// call Prune to cascade.
func (s *Store) DeleteFile(name string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[name]
	if ok {
		delete(s.files, name)
	}
	return rec.Data, ok
}

// DeleteImage removes an image record.
func (s *Store) DeleteImage(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strconv.Itoa(id)
	_, ok := s.images[key]
	delete(s.images, key)
	return ok
}

// File returns the file record stored under name.
func (s *Store) File(name string) (Record[File], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[name]
	return rec, ok
}

// Image returns the image record for id.
func (s *Store) Image(id int) (Record[Image], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.images[strconv.Itoa(id)]
	return rec, ok
}

// Author returns the author record for id.
func (s *Store) Author(id int) (Record[Author], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.authors[strconv.Itoa(id)]
	return rec, ok
}

// Tag returns the tag record for name.
func (s *Store) Tag(name string) (Record[Tag], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tags[name]
	return rec, ok
}

// HasFile reports whether a file record exists under name.
func (s *Store) HasFile(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[name]
	return ok
}

// FileFor returns the key of the file record holding image id and part.
func (s *Store) FileFor(id, part int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, rec := range s.files {
		if rec.Data.ID == id && rec.Data.Part == part {
			return name, true
		}
	}
	return "", false
}

// Files returns all file records ordered by image id and part.
func (s *Store) Files() []FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FileEntry, 0, len(s.files))
	for _, name := range sortedFileKeys(s.files) {
		out = append(out, FileEntry{Name: name, Record: s.files[name]})
	}
	return out
}

// Images returns all image records ordered by id.
func (s *Store) Images() []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Image, 0, len(s.images))
	for _, key := range sortedNumericKeys(s.images) {
		out = append(out, s.images[key].Data)
	}
	return out
}

// FileImageIDs returns the set of image ids referenced by at least one file.
func (s *Store) FileImageIDs() map[int]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[int]struct{}, len(s.files))
	for _, rec := range s.files {
		ids[rec.Data.ID] = struct{}{}
	}
	return ids
}

// Stats returns entity counts for each collection.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Files:   len(s.files),
		Images:  len(s.images),
		Authors: len(s.authors),
		Tags:    len(s.tags),
	}
}

// Prune removes images, authors and tags that are no longer referenced.
// Live key sets are recomputed bottom-up from the collection beneath each one,
// so running it twice in a row is a no-op the second time.
func (s *Store) Prune() PruneResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result PruneResult

	liveImages := make(map[string]struct{}, len(s.files))
	for _, rec := range s.files {
		liveImages[strconv.Itoa(rec.Data.ID)] = struct{}{}
	}
	for key := range s.images {
		if _, ok := liveImages[key]; !ok {
			delete(s.images, key)
			result.Images = append(result.Images, key)
		}
	}

	liveAuthors := make(map[string]struct{}, len(s.images))
	liveTags := make(map[string]struct{})
	for _, rec := range s.images {
		liveAuthors[strconv.Itoa(rec.Data.AuthorID)] = struct{}{}
		for _, tag := range rec.Data.Tags {
			liveTags[tag] = struct{}{}
		}
	}
	for key := range s.authors {
		if _, ok := liveAuthors[key]; !ok {
			delete(s.authors, key)
			result.Authors = append(result.Authors, key)
		}
	}
	for key := range s.tags {
		if _, ok := liveTags[key]; !ok {
			delete(s.tags, key)
			result.Tags = append(result.Tags, key)
		}
	}

	sortNumeric(result.Images)
	sortNumeric(result.Authors)
	sort.Strings(result.Tags)
	return result
}

func sortedFileKeys(m map[string]Record[File]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := m[keys[i]].Data.SortKey(), m[keys[j]].Data.SortKey()
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedNumericKeys[T any](m map[string]Record[T]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortNumeric(keys)
	return keys
}

func sortedKeys[T any](m map[string]Record[T]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortNumeric(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
}
