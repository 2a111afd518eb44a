package bagit

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// TagFile holds the contents of a tag file such as bag-info.txt. Tags keep
// their original order, and tags this code never touches are written back
// byte for byte as "name: value" lines. Multiple occurrences of a tag are
// not preserved; the last occurrence wins.
//
// Content strings are not wrapped at column 75 in this implementation.
type TagFile struct {
	names  []string
	values map[string]string
}

// NewTagFile returns an empty tag file.
func NewTagFile() *TagFile {
	return &TagFile{values: make(map[string]string)}
}

// ReadTagFile loads and parses the tag file at the given path.
func ReadTagFile(fs afero.Fs, name string) (*TagFile, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "read tag file")
	}
	return parseTags(data), nil
}

// parseTags splits tag file content into name/value pairs. A line beginning
// with white space continues the previous value. Lines with no colon are
// skipped.
func parseTags(data []byte) *TagFile {
	t := NewTagFile()
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last != "" {
				t.values[last] += " " + strings.TrimSpace(line)
			}
			continue
		}
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(line[:i])
		t.Set(name, strings.TrimSpace(line[i+1:]))
		last = name
	}
	return t
}

// Get returns the value for the named tag, and whether the tag is present.
func (t *TagFile) Get(name string) (string, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Set adds the named tag, or replaces its value if it is already present.
// New tags are appended after all existing ones.
func (t *TagFile) Set(name, value string) {
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = value
}

// Names returns the tag names in file order.
func (t *TagFile) Names() []string {
	result := make([]string, len(t.names))
	copy(result, t.names)
	return result
}

// Len returns the number of tags.
func (t *TagFile) Len() int { return len(t.names) }

// Encode renders the tag file as it will be stored on disk.
func (t *TagFile) Encode() []byte {
	var buf bytes.Buffer
	for _, name := range t.names {
		fmt.Fprintf(&buf, "%s: %s\n", name, t.values[name])
	}
	return buf.Bytes()
}

// WriteTagFile saves the tag file to the given path, replacing whatever was
// there before.
func WriteTagFile(fs afero.Fs, name string, t *TagFile) error {
	err := afero.WriteFile(fs, name, t.Encode(), 0644)
	return errors.Wrap(err, "write tag file")
}

// Tags loads the named top-level tag file of this bag. Asking for a tag file
// which doesn't exist is not an error; an empty TagFile is returned so
// callers can populate and save it.
func (b *Bag) Tags(name string) (*TagFile, error) {
	fullname := path.Join(b.path, name)
	ok, err := afero.Exists(b.fs, fullname)
	if err != nil {
		return nil, errors.Wrap(err, "read tags")
	}
	if !ok {
		return NewTagFile(), nil
	}
	return ReadTagFile(b.fs, fullname)
}

// SetTags saves the given tag file as the named top-level file of this bag.
// Call UpdateTagManifests afterward so the bag remains valid.
func (b *Bag) SetTags(name string, t *TagFile) error {
	return WriteTagFile(b.fs, path.Join(b.path, name), t)
}
