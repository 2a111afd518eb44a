// Package bagit implements enough of the BagIt specification to read,
// verify, and update the bags exported from ARCHive. A bag here is a
// directory on a filesystem with a data/ payload subdirectory, tag files at
// the top level, and manifest files naming a checksum for every payload
// file. Only MD5, SHA1, SHA256, and SHA512 checksums are supported.
//
// Specific items not implemented are fetch files and holey bags, and bags
// serialized into zip or tar files. Serialization and deserialization are
// handled by other tooling; this package always works on an unpacked bag
// directory.
//
// Checksums are only calculated when a bag is (explicitly) verified or when
// tag manifests are regenerated after a tag file edit. They are not
// calculated when reading content from a bag.
//
// The BagIt spec can be found at https://tools.ietf.org/html/draft-kunze-bagit-11.
package bagit

import (
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Bag represents a single unpacked bag directory.
type Bag struct {
	fs afero.Fs

	// path of the bag directory. The directory base name is the bag's name.
	path string
}

// Conventional file names inside a bag. The payload lives under data/.
const (
	DeclarationFile = "bagit.txt"
	BagInfoFile     = "bag-info.txt"
	PayloadDir      = "data"
)

// BagSuffix is the marker ARCHive appends to a bag's directory name.
// The package identifier is the bag name with this suffix removed.
const BagSuffix = "_bag"

var (
	// ErrNoDeclaration means the directory is missing its bagit.txt and is
	// probably not a bag at all.
	ErrNoDeclaration = errors.New("no bagit.txt declaration in bag")

	// ErrNoManifest means the bag contains no payload manifest files.
	ErrNoManifest = errors.New("no payload manifest in bag")
)

// Open returns a Bag for the directory at the given path. The directory must
// contain a bagit.txt declaration. No checksums are verified on open.
func Open(fs afero.Fs, dir string) (*Bag, error) {
	ok, err := afero.Exists(fs, path.Join(dir, DeclarationFile))
	if err != nil {
		return nil, errors.Wrap(err, "open bag")
	}
	if !ok {
		return nil, ErrNoDeclaration
	}
	return &Bag{fs: fs, path: dir}, nil
}

// Path returns the path to the bag directory.
func (b *Bag) Path() string { return b.path }

// Name returns the bag's directory name, e.g. "rbrl-043-er-000123_bag".
func (b *Bag) Name() string { return path.Base(b.path) }

// Identifier returns the package identifier, which is the bag name with any
// trailing bag-suffix marker removed.
func (b *Bag) Identifier() string {
	return strings.TrimSuffix(b.Name(), BagSuffix)
}

// PayloadOxum computes the octet count and stream count of the payload, in
// the "octets.streams" form used by the Payload-Oxum tag.
func (b *Bag) PayloadOxum() (octets int64, streams int, err error) {
	files, err := b.payloadFiles()
	if err != nil {
		return 0, 0, err
	}
	for _, f := range files {
		info, err := b.fs.Stat(path.Join(b.path, f))
		if err != nil {
			return 0, 0, errors.Wrap(err, "payload oxum")
		}
		octets += info.Size()
		streams++
	}
	return octets, streams, nil
}

// payloadFiles lists all regular files beneath data/, as bag-relative
// slash-separated paths in sorted order.
func (b *Bag) payloadFiles() ([]string, error) {
	var files []string
	err := afero.Walk(b.fs, path.Join(b.path, PayloadDir),
		func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			files = append(files, relative(b.path, p))
			return nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "walk payload")
	}
	sort.Strings(files)
	return files, nil
}

// tagFiles lists the top-level tag and manifest files of the bag, excluding
// tag manifests, which are never themselves listed in a tag manifest.
func (b *Bag) tagFiles() ([]string, error) {
	entries, err := afero.ReadDir(b.fs, b.path)
	if err != nil {
		return nil, errors.Wrap(err, "list tag files")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "tagmanifest-") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// relative converts p into a slash-separated path relative to root. The walk
// always starts under root, so a simple prefix trim is enough.
func relative(root, p string) string {
	p = strings.TrimPrefix(p, root)
	return strings.TrimLeft(p, "/")
}
