// Package pipeline sequences the checks and transformations which turn a
// bag exported from ARCHive into a package the destination repository will
// accept. Each package moves through a fixed series of states; the first
// failing stage stops that package and quarantines it, and never affects any
// other package in the batch.
package pipeline

import "strings"

// Outcome is the result of one validation stage. It distinguishes an
// invalid package (Problems) from a check which could not run at all (Err).
// A broken check is always fatal for the package; an invalid package is
// handled by the failure category of the stage that found it.
type Outcome struct {
	Problems []string
	Err      error
}

// Valid returns a passing outcome.
func Valid() Outcome { return Outcome{} }

// Invalid returns a failing outcome with the given reasons.
func Invalid(reasons ...string) Outcome { return Outcome{Problems: reasons} }

// CheckError returns an outcome for a check which itself broke.
func CheckError(err error) Outcome { return Outcome{Err: err} }

// IsValid reports whether the stage passed.
func (o Outcome) IsValid() bool { return len(o.Problems) == 0 && o.Err == nil }

// State tracks how far a package made it through the pipeline.
type State int

const (
	StateExtracted State = iota
	StateInitialValidated
	StateSizeChecked
	StateMetadataInjected
	StateSanitized
	StateFinalValidated
	StateDone
	StateFailed
)

var stateNames = []string{
	"Extracted",
	"InitialValidated",
	"SizeChecked",
	"MetadataInjected",
	"Sanitized",
	"FinalValidated",
	"Done",
	"Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Category names a kind of failure. It doubles as the holding-area
// subdirectory a failed package is moved into, so values are directory-safe.
type Category string

const (
	CategoryBagInvalid      Category = "bag-invalid"
	CategoryCheckerError    Category = "checker-error"
	CategorySizeExceeded    Category = "size-exceeded"
	CategoryMetadataMissing Category = "metadata-missing"
	CategoryFilesystem      Category = "filesystem-error"
)

// Failure carries everything known about why a package stopped.
type Failure struct {
	Category Category
	Reasons  []string
	Err      error
}

func (f *Failure) Error() string {
	msg := string(f.Category)
	if len(f.Reasons) > 0 {
		msg += ": " + strings.Join(f.Reasons, "; ")
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// fatal reports whether the failure came from our environment rather than
// from the package itself. Infrastructure failures are reported to error
// tracking; bad packages are routine.
func (f *Failure) fatal() bool {
	return f.Category == CategoryCheckerError || f.Category == CategoryFilesystem
}
