package bagit

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Verify checks this bag for internal consistency. It confirms that every
// payload file appears in at least one payload manifest, that every manifest
// entry resolves to an existing file, that all recorded checksums match the
// file contents, that tag manifest entries match the tag files, and that any
// Payload-Oxum tag agrees with the payload.
//
// problems lists each inconsistency found and is empty for a valid bag. err
// does not indicate validation failures, only whether a system error
// happened while verifying (an unreadable directory, say). This mirrors the
// distinction the pipeline makes between an invalid bag and a broken check.
func (b *Bag) Verify() (problems []string, err error) {
	manifest, err := b.Manifest(false)
	if err == ErrNoManifest {
		return []string{"bag has no payload manifest"}, nil
	}
	if err != nil {
		// a manifest which cannot be parsed is a property of the bag,
		// not of our environment
		return []string{err.Error()}, nil
	}

	files, err := b.payloadFiles()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(files))
	for _, fname := range files {
		seen[fname] = true
		ck := manifest[fname]
		if ck == nil {
			problems = append(problems, fmt.Sprintf("%s is not listed in any manifest", fname))
			continue
		}
		p, err := b.verifyChecksum(fname, ck)
		if err != nil {
			return problems, err
		}
		problems = append(problems, p...)
	}
	for fname := range manifest {
		if !seen[fname] {
			problems = append(problems, fmt.Sprintf("%s is listed in a manifest but missing from the payload", fname))
		}
	}

	p, err := b.verifyTagManifests()
	if err != nil {
		return problems, err
	}
	problems = append(problems, p...)

	p, err = b.verifyOxum()
	if err != nil {
		return problems, err
	}
	problems = append(problems, p...)
	return problems, nil
}

// verifyTagManifests checks every tag manifest entry against the current tag
// files. Tag files not listed in a tag manifest are fine; the spec does not
// require complete coverage there.
func (b *Bag) verifyTagManifests() (problems []string, err error) {
	tagm, err := b.Manifest(true)
	if err != nil {
		return []string{err.Error()}, nil
	}
	for fname, ck := range tagm {
		ok, err := afero.Exists(b.fs, path.Join(b.path, fname))
		if err != nil {
			return problems, errors.Wrap(err, "verify tag manifest")
		}
		if !ok {
			problems = append(problems, fmt.Sprintf("%s is listed in a tag manifest but does not exist", fname))
			continue
		}
		p, err := b.verifyChecksum(fname, ck)
		if err != nil {
			return problems, err
		}
		problems = append(problems, p...)
	}
	return problems, nil
}

// verifyOxum compares a Payload-Oxum tag, if present, with the actual
// payload.
func (b *Bag) verifyOxum() (problems []string, err error) {
	info, err := b.Tags(BagInfoFile)
	if err != nil {
		return nil, err
	}
	oxum, ok := info.Get("Payload-Oxum")
	if !ok {
		return nil, nil
	}
	parts := strings.SplitN(oxum, ".", 2)
	if len(parts) != 2 {
		return []string{fmt.Sprintf("malformed Payload-Oxum %q", oxum)}, nil
	}
	octets, err1 := strconv.ParseInt(parts[0], 10, 64)
	streams, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return []string{fmt.Sprintf("malformed Payload-Oxum %q", oxum)}, nil
	}
	actualOctets, actualStreams, err := b.PayloadOxum()
	if err != nil {
		return nil, err
	}
	if octets != actualOctets || streams != actualStreams {
		problems = append(problems,
			fmt.Sprintf("Payload-Oxum is %s but payload is %d.%d", oxum, actualOctets, actualStreams))
	}
	return problems, nil
}

// verifyChecksum streams the named file once and compares it against every
// checksum recorded for it.
func (b *Bag) verifyChecksum(fname string, ck *Checksum) (problems []string, err error) {
	var algs []string
	for _, alg := range Algorithms {
		if len(ck.get(alg)) > 0 {
			algs = append(algs, alg)
		}
	}
	computed, err := b.fileChecksum(fname, algs)
	if err != nil {
		return nil, err
	}
	for _, alg := range algs {
		if !equalHash(ck.get(alg), computed.get(alg)) {
			problems = append(problems, fmt.Sprintf("%s has a %s mismatch", fname, alg))
		}
	}
	return problems, nil
}

// fileChecksum computes the requested checksums of a bag-relative file in a
// single pass.
func (b *Bag) fileChecksum(fname string, algs []string) (*Checksum, error) {
	hashes := make([]hash.Hash, len(algs))
	writers := make([]io.Writer, len(algs))
	for i, alg := range algs {
		hashes[i] = newHash(alg)
		writers[i] = hashes[i]
	}
	f, err := b.fs.Open(path.Join(b.path, fname))
	if err != nil {
		return nil, errors.Wrap(err, "checksum")
	}
	defer f.Close()
	_, err = io.Copy(io.MultiWriter(writers...), f)
	if err != nil {
		return nil, errors.Wrap(err, "checksum")
	}
	result := new(Checksum)
	for i, alg := range algs {
		result.set(alg, hashes[i].Sum(nil))
	}
	return result, nil
}

func newHash(alg string) hash.Hash {
	switch alg {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	case "sha512":
		return sha512.New()
	}
	return nil
}

func equalHash(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
