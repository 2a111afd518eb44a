package bagit

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Checksum contains all the checksums we know about for a given file.
// Some entries may be empty. At least one entry should be present.
type Checksum struct {
	MD5    []byte
	SHA1   []byte
	SHA256 []byte
	SHA512 []byte
}

// Algorithms lists the manifest checksum algorithms this package knows, in
// the order manifests are processed.
var Algorithms = []string{"md5", "sha1", "sha256", "sha512"}

func (c *Checksum) get(alg string) []byte {
	switch alg {
	case "md5":
		return c.MD5
	case "sha1":
		return c.SHA1
	case "sha256":
		return c.SHA256
	case "sha512":
		return c.SHA512
	}
	return nil
}

func (c *Checksum) set(alg string, h []byte) {
	switch alg {
	case "md5":
		c.MD5 = h
	case "sha1":
		c.SHA1 = h
	case "sha256":
		c.SHA256 = h
	case "sha512":
		c.SHA512 = h
	}
}

// Manifest maps bag-relative file paths to their expected checksums.
// Payload entries begin with "data/". Tag file entries don't.
type Manifest map[string]*Checksum

// manifestName builds "manifest-md5.txt" or "tagmanifest-md5.txt" style
// names.
func manifestName(istag bool, alg string) string {
	if istag {
		return "tagmanifest-" + alg + ".txt"
	}
	return "manifest-" + alg + ".txt"
}

// ManifestAlgorithms returns the algorithms which have a manifest file in
// this bag. istag selects tag manifests instead of payload manifests.
func (b *Bag) ManifestAlgorithms(istag bool) ([]string, error) {
	var result []string
	for _, alg := range Algorithms {
		ok, err := afero.Exists(b.fs, path.Join(b.path, manifestName(istag, alg)))
		if err != nil {
			return nil, errors.Wrap(err, "probe manifest")
		}
		if ok {
			result = append(result, alg)
		}
	}
	return result, nil
}

// Manifest loads and merges every payload manifest (or every tag manifest if
// istag is true) in the bag into a single Manifest. A malformed manifest
// line is an error; the bag cannot be trusted if its manifests cannot be
// read.
func (b *Bag) Manifest(istag bool) (Manifest, error) {
	algs, err := b.ManifestAlgorithms(istag)
	if err != nil {
		return nil, err
	}
	if len(algs) == 0 && !istag {
		return nil, ErrNoManifest
	}
	m := make(Manifest)
	for _, alg := range algs {
		name := manifestName(istag, alg)
		data, err := afero.ReadFile(b.fs, path.Join(b.path, name))
		if err != nil {
			return nil, errors.Wrap(err, "read manifest")
		}
		err = m.parse(alg, name, data)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// parse adds the entries of one manifest file to m.
func (m Manifest) parse(alg, name string, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return errors.Errorf("%s:%d: malformed manifest line", name, lineno)
		}
		h, err := hex.DecodeString(line[:i])
		if err != nil {
			return errors.Wrapf(err, "%s:%d: bad checksum", name, lineno)
		}
		// md5sum marks binary mode with an asterisk before the name
		fname := strings.TrimLeft(line[i:], " \t*")
		if fname == "" {
			return errors.Errorf("%s:%d: manifest line has no file name", name, lineno)
		}
		ck := m[fname]
		if ck == nil {
			ck = new(Checksum)
			m[fname] = ck
		}
		ck.set(alg, h)
	}
	return errors.Wrap(scanner.Err(), name)
}

// writeManifest saves the entries of m which have a checksum for alg, in
// sorted path order, to the matching manifest file.
func (b *Bag) writeManifest(m Manifest, istag bool, alg string) error {
	var paths []string
	for fname, ck := range m {
		if len(ck.get(alg)) > 0 {
			paths = append(paths, fname)
		}
	}
	sort.Strings(paths)
	var buf bytes.Buffer
	for _, fname := range paths {
		// The 2 spaces is to be identical to the GNU md5sum output.
		fmt.Fprintf(&buf, "%s  %s\n", hex.EncodeToString(m[fname].get(alg)), fname)
	}
	name := path.Join(b.path, manifestName(istag, alg))
	err := afero.WriteFile(b.fs, name, buf.Bytes(), 0644)
	return errors.Wrap(err, "write manifest")
}

// RewritePayloadPaths updates every payload manifest after files have been
// renamed. renames maps old bag-relative paths to new ones; entries for
// paths not present in a manifest are ignored. Checksums are carried over
// unchanged since renaming does not alter content.
func (b *Bag) RewritePayloadPaths(renames map[string]string) error {
	if len(renames) == 0 {
		return nil
	}
	m, err := b.Manifest(false)
	if err != nil {
		return err
	}
	updated := make(Manifest)
	for fname, ck := range m {
		if newname, ok := renames[fname]; ok {
			fname = newname
		}
		updated[fname] = ck
	}
	algs, err := b.ManifestAlgorithms(false)
	if err != nil {
		return err
	}
	for _, alg := range algs {
		if err := b.writeManifest(updated, false, alg); err != nil {
			return err
		}
	}
	// manifest files changed, so their tag manifest entries are stale
	return b.UpdateTagManifests()
}

// WriteManifests computes fresh payload and tag manifests over the current
// bag contents for the given algorithms. This is how a bag under
// construction gets its checksums; converted bags keep the manifests they
// arrived with.
func (b *Bag) WriteManifests(algs ...string) error {
	files, err := b.payloadFiles()
	if err != nil {
		return err
	}
	m := make(Manifest)
	for _, fname := range files {
		ck, err := b.fileChecksum(fname, algs)
		if err != nil {
			return err
		}
		m[fname] = ck
	}
	for _, alg := range algs {
		if err := b.writeManifest(m, false, alg); err != nil {
			return err
		}
	}

	tags, err := b.tagFiles()
	if err != nil {
		return err
	}
	tagm := make(Manifest)
	for _, fname := range tags {
		ck, err := b.fileChecksum(fname, algs)
		if err != nil {
			return err
		}
		tagm[fname] = ck
	}
	for _, alg := range algs {
		if err := b.writeManifest(tagm, true, alg); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTagManifests recomputes every tag manifest in the bag from the
// current tag and manifest files. Call it after any top-level file is added
// or edited. Bags with no tag manifest are left alone.
func (b *Bag) UpdateTagManifests() error {
	algs, err := b.ManifestAlgorithms(true)
	if err != nil {
		return err
	}
	if len(algs) == 0 {
		return nil
	}
	files, err := b.tagFiles()
	if err != nil {
		return err
	}
	m := make(Manifest)
	for _, fname := range files {
		ck, err := b.fileChecksum(fname, algs)
		if err != nil {
			return err
		}
		m[fname] = ck
	}
	for _, alg := range algs {
		if err := b.writeManifest(m, true, alg); err != nil {
			return err
		}
	}
	return nil
}
