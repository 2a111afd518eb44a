package pipeline

import (
	"log"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// gate limits how many packages are converted at once. A goroutine enters
// the gate before processing a package and leaves when done. Packages are
// fully independent units of work, so running them in parallel does not
// change any per-package semantics.
type gate chan struct{}

func newGate(n int) gate { return gate(make(chan struct{}, n)) }

func (g gate) enter() { g <- struct{}{} }

func (g gate) leave() { <-g }

// Batch processes every package in a directory.
type Batch struct {
	Controller *Controller

	// Workers is the number of packages converted concurrently.
	// Zero or one means sequential processing.
	Workers int
}

// Run converts every bag directory directly under root and returns one
// Result per package, in name order. Entries which are not directories, and
// the holding area itself, are skipped. Failures never cross packages: a
// package that fails is quarantined and the batch keeps going.
func (b *Batch) Run(root string) ([]*Result, error) {
	dirs, err := b.packageDirs(root)
	if err != nil {
		return nil, err
	}
	log.Printf("processing %d packages in %s", len(dirs), root)

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	g := newGate(workers)
	results := make([]*Result, len(dirs))
	var wg sync.WaitGroup
	for i, dir := range dirs {
		wg.Add(1)
		g.enter()
		go func(i int, dir string) {
			defer wg.Done()
			defer g.leave()
			results[i] = b.Controller.Process(dir)
		}(i, dir)
	}
	wg.Wait()
	return results, nil
}

// packageDirs lists the candidate bag directories under root in sorted
// order.
func (b *Batch) packageDirs(root string) ([]string, error) {
	entries, err := afero.ReadDir(b.Controller.Fs, root)
	if err != nil {
		return nil, errors.Wrap(err, "list packages")
	}
	holding := b.Controller.ErrorsDir
	if holding == "" {
		holding = DefaultErrorsDir
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		// skip the holding area when it lives inside the batch directory
		if e.Name() == path.Base(holding) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, path.Join(root, e.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}
