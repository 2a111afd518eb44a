package pipeline

import (
	"log"
	"path"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/uga-libraries/aip-aptrust/bagit"
	"github.com/uga-libraries/aip-aptrust/metadata"
	"github.com/uga-libraries/aip-aptrust/names"
)

// DefaultErrorsDir is where failed packages are quarantined, one
// subdirectory per failure category.
const DefaultErrorsDir = "errors"

// Controller runs one package through the conversion pipeline. Stages are
// strictly ordered and none is skipped or retried: a check of the freshly
// extracted bag, the size limit, metadata injection, name sanitization, and
// a final check proving the pipeline itself corrupted nothing. Metadata runs
// before sanitization because the preservation document is found by the
// package's original name; renaming first would break that lookup.
type Controller struct {
	Fs      afero.Fs
	Checker IntegrityChecker

	// Defaults for metadata injection.
	Defaults metadata.Defaults

	// SizeLimit in bytes. Zero means MaxPackageSize.
	SizeLimit int64

	// ErrorsDir is the holding-area root for failed packages. Empty means
	// DefaultErrorsDir.
	ErrorsDir string
}

// Result is the structured outcome record emitted for every processed
// package, consumed by downstream reporting.
type Result struct {
	// Identifier is the package identifier derived from the original bag
	// name, before any renaming.
	Identifier string

	// BagName is the bag directory's original base name.
	BagName string

	// Path of the package when processing ended: the (possibly renamed)
	// bag directory on success, or its holding-area location on failure.
	Path string

	// State the package ended in: StateDone or StateFailed.
	State State

	// How far the package got before failing. Equal to StateDone when the
	// package converted cleanly.
	LastState State

	// Failure is nil for a converted package.
	Failure *Failure

	// Renames applied by sanitization, for the per-package rename log.
	Renames []names.Rename
}

// Process converts the package in the directory dir. It always returns a
// Result; a failed package has already been moved to the holding area by the
// time Process returns.
func (c *Controller) Process(dir string) *Result {
	res := &Result{
		BagName: path.Base(dir),
		Path:    dir,
		State:   StateExtracted,
	}

	b, err := bagit.Open(c.Fs, dir)
	if err == bagit.ErrNoDeclaration {
		return c.fail(res, &Failure{Category: CategoryBagInvalid, Reasons: []string{err.Error()}})
	}
	if err != nil {
		return c.fail(res, &Failure{Category: CategoryFilesystem, Err: err})
	}
	res.Identifier = b.Identifier()

	// the bag may have been corrupted in storage or unpacking, so check
	// before investing any work in it
	if f := failureFrom(c.Checker.Check(dir), CategoryBagInvalid); f != nil {
		return c.fail(res, f)
	}
	res.State = StateInitialValidated

	size := SizeValidator{Fs: c.Fs, Limit: c.SizeLimit}
	if f := failureFrom(size.Validate(dir), CategorySizeExceeded); f != nil {
		return c.fail(res, f)
	}
	res.State = StateSizeChecked

	rec, err := metadata.ReadRecord(c.Fs, b)
	if err == nil {
		inj := metadata.Injector{Defaults: c.Defaults}
		err = inj.Inject(b, rec)
	}
	if err != nil {
		return c.fail(res, metadataFailure(err))
	}
	res.State = StateMetadataInjected

	sanitized, err := names.Sanitize(c.Fs, dir)
	if err != nil {
		return c.fail(res, &Failure{Category: CategoryFilesystem, Err: err})
	}
	res.Renames = sanitized.Renames
	res.Path = sanitized.Root
	if err := c.repairManifests(sanitized); err != nil {
		return c.fail(res, &Failure{Category: CategoryFilesystem, Err: err})
	}
	res.State = StateSanitized

	// regression guard: the payload must be untouched by everything above
	if f := failureFrom(c.Checker.Check(sanitized.Root), CategoryBagInvalid); f != nil {
		return c.fail(res, f)
	}
	res.State = StateFinalValidated

	res.State = StateDone
	res.LastState = StateDone
	return res
}

// repairManifests rewrites manifest entries for every payload path changed
// by sanitization, keeping the bag's referential integrity.
func (c *Controller) repairManifests(sanitized *names.Result) error {
	if len(sanitized.Renames) == 0 {
		return nil
	}
	b, err := bagit.Open(c.Fs, sanitized.Root)
	if err != nil {
		return err
	}
	m, err := b.Manifest(false)
	if err != nil {
		return err
	}
	renamed := make(map[string]string)
	for fname := range m {
		if newname := sanitized.FinalPath(fname); newname != fname {
			renamed[fname] = newname
		}
	}
	return b.RewritePayloadPaths(renamed)
}

// failureFrom converts a stage outcome into a Failure, or nil if the stage
// passed. invalidAs names the category used when the package itself is the
// problem; a broken check is always a checker error.
func failureFrom(o Outcome, invalidAs Category) *Failure {
	if o.Err != nil {
		return &Failure{Category: CategoryCheckerError, Err: o.Err}
	}
	if len(o.Problems) > 0 {
		return &Failure{Category: invalidAs, Reasons: o.Problems}
	}
	return nil
}

// metadataFailure classifies an error from reading or injecting metadata.
func metadataFailure(err error) *Failure {
	var missing metadata.MissingFieldError
	if errors.As(err, &missing) || errors.Is(err, metadata.ErrNoDocument) {
		return &Failure{Category: CategoryMetadataMissing, Err: err}
	}
	return &Failure{Category: CategoryFilesystem, Err: err}
}

// fail finalizes res for the given failure and quarantines the package in
// its current, partially converted form.
func (c *Controller) fail(res *Result, f *Failure) *Result {
	res.LastState = res.State
	res.State = StateFailed
	res.Failure = f
	log.Printf("%s: failed at %s: %s", res.BagName, res.LastState, f.Error())
	if f.fatal() {
		raven.CaptureError(f.Err, map[string]string{"package": res.BagName})
	}

	holding, err := c.moveToHolding(res.Path, f.Category)
	if err != nil {
		// the package is stuck where it is; record that rather than
		// masking the original failure
		log.Printf("%s: move to holding area: %s", res.BagName, err.Error())
		raven.CaptureError(err, map[string]string{"package": res.BagName})
		return res
	}
	res.Path = holding
	return res
}

// moveToHolding relocates a failed package into the holding area directory
// named for the failure category, and returns the new location.
func (c *Controller) moveToHolding(dir string, category Category) (string, error) {
	root := c.ErrorsDir
	if root == "" {
		root = DefaultErrorsDir
	}
	target := path.Join(root, string(category))
	if err := c.Fs.MkdirAll(target, 0775); err != nil {
		return "", errors.Wrap(err, "create holding area")
	}
	dest := path.Join(target, path.Base(dir))
	if err := c.Fs.Rename(dir, dest); err != nil {
		return "", errors.Wrap(err, "quarantine package")
	}
	return dest, nil
}
