package names

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Rename records one applied name change.
type Rename struct {
	// OldPath is the path at the time of the rename, relative to the
	// sanitized root. Renames are applied bottom-up, so ancestor
	// directories still carry their original names here.
	OldPath string

	// NewPath is OldPath with its final element replaced by the new name.
	NewPath string

	// Reasons the original name was flagged.
	Reasons []Reason
}

func (r Rename) String() string {
	parts := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		parts[i] = reason.String()
	}
	return fmt.Sprintf("%s -> %s (%s)", r.OldPath, r.NewPath, strings.Join(parts, "; "))
}

// Result describes everything a sanitization pass changed.
type Result struct {
	// Root is the path of the sanitized tree, which differs from the
	// original root when the root directory itself was renamed.
	Root string

	// Renames lists every applied change in the order performed
	// (deepest first).
	Renames []Rename

	// newname maps the original root-relative path of each renamed entry
	// to its replacement name.
	newname map[string]string
}

// FinalPath translates a root-relative path recorded before sanitization
// into the path the entry has afterward. Paths never renamed come back
// unchanged.
func (res *Result) FinalPath(rel string) string {
	if len(res.newname) == 0 {
		return rel
	}
	segments := strings.Split(rel, "/")
	orig := ""
	for i, seg := range segments {
		orig = path.Join(orig, seg)
		if n, ok := res.newname[orig]; ok {
			segments[i] = n
		}
	}
	return path.Join(segments...)
}

// entry is one directory or file scheduled for examination.
type entry struct {
	rel   string // root-relative path
	depth int
	isDir bool
}

// Sanitize walks the tree rooted at root and renames every file and
// directory whose name the destination repository would reject. Renames are
// applied bottom-up so that renaming a directory does not invalidate the
// paths of entries below it, and each individual rename is atomic. The root
// directory itself is examined last.
//
// Sanitize is idempotent: running it on an already clean tree performs no
// renames.
func Sanitize(fs afero.Fs, root string) (*Result, error) {
	res := &Result{Root: root, newname: make(map[string]string)}

	var entries []entry
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel := strings.TrimLeft(strings.TrimPrefix(p, root), "/")
		entries = append(entries, entry{
			rel:   rel,
			depth: strings.Count(rel, "/"),
			isDir: info.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "sanitize walk")
	}

	// deepest entries first, stable within a depth for reproducible logs
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].depth != entries[j].depth {
			return entries[i].depth > entries[j].depth
		}
		return entries[i].rel < entries[j].rel
	})

	for _, e := range entries {
		name := path.Base(e.rel)
		reasons := Check(name)
		if len(reasons) == 0 {
			continue
		}
		dir := path.Dir(e.rel)
		if dir == "." {
			dir = ""
		}
		newname, err := unique(fs, path.Join(root, dir), Clean(name))
		if err != nil {
			return nil, err
		}
		oldfull := path.Join(root, e.rel)
		newfull := path.Join(root, dir, newname)
		if err := fs.Rename(oldfull, newfull); err != nil {
			return nil, errors.Wrapf(err, "rename %s", e.rel)
		}
		res.newname[e.rel] = newname
		res.Renames = append(res.Renames, Rename{
			OldPath: e.rel,
			NewPath: path.Join(dir, newname),
			Reasons: reasons,
		})
	}

	// finally the root directory's own name
	rootname := path.Base(root)
	if reasons := Check(rootname); len(reasons) > 0 {
		parent := path.Dir(root)
		if parent == "." {
			parent = ""
		}
		newname, err := unique(fs, parent, Clean(rootname))
		if err != nil {
			return nil, err
		}
		newroot := path.Join(parent, newname)
		if err := fs.Rename(root, newroot); err != nil {
			return nil, errors.Wrapf(err, "rename %s", root)
		}
		res.Root = newroot
		res.Renames = append(res.Renames, Rename{
			OldPath: rootname,
			NewPath: newname,
			Reasons: reasons,
		})
	}
	return res, nil
}

// unique returns name, or name with a numeric suffix inserted before the
// extension, such that no sibling in dir already uses it.
func unique(fs afero.Fs, dir, name string) (string, error) {
	candidate := name
	ext := path.Ext(name)
	stem := name[:len(name)-len(ext)]
	for n := 1; ; n++ {
		ok, err := afero.Exists(fs, path.Join(dir, candidate))
		if err != nil {
			return "", errors.Wrap(err, "probe sibling")
		}
		if !ok {
			return candidate, nil
		}
		// keep the suffix and extension intact even if the stem has to
		// give up bytes for them
		suffix := fmt.Sprintf("_%d", n)
		candidate = cutAtRune(stem, MaxNameBytes-len(suffix)-len(ext)) + suffix + ext
	}
}
