package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
)

// snapshot is the on-disk shape of the collection.
type snapshot struct {
	Authors map[string]Record[Author] `json:"authors"`
	Images  map[string]Record[Image]  `json:"images"`
	Tags    map[string]Record[Tag]    `json:"tags"`
	Files   map[string]Record[File]   `json:"files"`
}

// Load replaces the store content with the snapshot at path.
// A missing file returns an error wrapping fs.ErrNotExist; undecodable or
// inconsistent content returns an error wrapping ErrMalformed.
// Fields unknown to the current record types are dropped.
func (s *Store) Load(path string) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read collection %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if err := validate(&snap); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = orEmpty(snap.Files)
	s.images = orEmpty(snap.Images)
	s.authors = orEmpty(snap.Authors)
	s.tags = orEmpty(snap.Tags)
	for key, rec := range s.images {
		if rec.Data.Tags == nil {
			rec.Data.Tags = []string{}
			s.images[key] = rec
		}
	}
	return nil
}

// Save writes the store to path as indented JSON. Collections are always
// re-sorted first: authors and images by numeric id, files by id*1000+part,
// tags by name, so diffs stay stable across runs.
func (s *Store) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write collection %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close collection %s: %w", path, err)
	}
	return nil
}

// Marshal renders the sorted snapshot.
func (s *Store) Marshal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	sections := []struct {
		name  string
		write func(*bytes.Buffer) error
	}{
		{"authors", func(b *bytes.Buffer) error { return writeObject(b, sortedNumericKeys(s.authors), s.authors) }},
		{"images", func(b *bytes.Buffer) error { return writeObject(b, sortedNumericKeys(s.images), s.images) }},
		{"tags", func(b *bytes.Buffer) error { return writeObject(b, sortedKeys(s.tags), s.tags) }},
		{"files", func(b *bytes.Buffer) error { return writeObject(b, sortedFileKeys(s.files), s.files) }},
	}
	for i, sec := range sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(&buf, sec.name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := sec.write(&buf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", sec.name, err)
		}
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("failed to indent collection: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// writeObject writes m as a JSON object with keys in the given order.
func writeObject[T any](buf *bytes.Buffer, keys []string, m map[string]Record[T]) error {
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, m[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeValue encodes v without HTML escaping so titles and tags stay readable.
func writeValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func validate(snap *snapshot) error {
	for key, rec := range snap.Images {
		if strconv.Itoa(rec.Data.ID) != key {
			return fmt.Errorf("image %q has id %d", key, rec.Data.ID)
		}
	}
	for key, rec := range snap.Authors {
		if strconv.Itoa(rec.Data.ID) != key {
			return fmt.Errorf("author %q has id %d", key, rec.Data.ID)
		}
	}
	for key, rec := range snap.Tags {
		if rec.Data.Name != key {
			return fmt.Errorf("tag %q has name %q", key, rec.Data.Name)
		}
	}
	type identity struct{ id, part int }
	seen := make(map[identity]string, len(snap.Files))
	for key, rec := range snap.Files {
		ident := identity{rec.Data.ID, rec.Data.Part}
		if prev, dup := seen[ident]; dup {
			return fmt.Errorf("files %q and %q share image %d part %d", prev, key, rec.Data.ID, rec.Data.Part)
		}
		seen[ident] = key
	}
	return nil
}

func orEmpty[T any](m map[string]Record[T]) map[string]Record[T] {
	if m == nil {
		return make(map[string]Record[T])
	}
	return m
}
