// Package report records what happened to each processed package: CSV logs
// for staff review, matching the files the conversion has always produced,
// and an optional database for querying outcomes across batches.
package report

import (
	"strings"
	"time"

	"github.com/uga-libraries/aip-aptrust/pipeline"
)

// OutcomeRow is one processed package as stored for reporting.
type OutcomeRow struct {
	BatchID   string
	PackageID string
	BagName   string
	State     string
	Category  string
	Reasons   string
	When      time.Time
}

// RenameRow is one applied name change as stored for reporting.
type RenameRow struct {
	BatchID   string
	PackageID string
	OldPath   string
	NewPath   string
	Reasons   string
}

// Store keeps outcome records beyond the life of a single batch run.
// Two implementations exist: an embedded QL database for development and
// single-machine use, and MySQL for shared deployments.
type Store interface {
	// SaveResult records a package outcome and its renames under the
	// given batch id.
	SaveResult(batchID string, res *pipeline.Result) error

	// Outcomes returns the rows for one batch, or every row when batchID
	// is empty, newest first.
	Outcomes(batchID string) ([]OutcomeRow, error)

	// Renames returns the rename log rows for one package.
	Renames(packageID string) ([]RenameRow, error)

	Close() error
}

// rows converts a pipeline result into its storage form.
func rows(batchID string, res *pipeline.Result, now time.Time) (OutcomeRow, []RenameRow) {
	out := OutcomeRow{
		BatchID:   batchID,
		PackageID: res.Identifier,
		BagName:   res.BagName,
		State:     res.State.String(),
		When:      now,
	}
	if res.Failure != nil {
		out.Category = string(res.Failure.Category)
		reasons := res.Failure.Reasons
		if res.Failure.Err != nil {
			reasons = append(reasons[:len(reasons):len(reasons)], res.Failure.Err.Error())
		}
		out.Reasons = strings.Join(reasons, "; ")
	}
	var renames []RenameRow
	for _, r := range res.Renames {
		parts := make([]string, len(r.Reasons))
		for i, reason := range r.Reasons {
			parts[i] = reason.String()
		}
		renames = append(renames, RenameRow{
			BatchID:   batchID,
			PackageID: res.Identifier,
			OldPath:   r.OldPath,
			NewPath:   r.NewPath,
			Reasons:   strings.Join(parts, "; "),
		})
	}
	return out, renames
}
