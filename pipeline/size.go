package pipeline

import (
	"os"

	"github.com/spf13/afero"
)

// MaxPackageSize is the destination repository's aggregate size limit:
// 5 TB, in decimal (10^12) terabytes. The limit is documented by the
// consortium in decimal units, so a package of exactly 5,000,000,000,000
// bytes is already too big.
const MaxPackageSize int64 = 5 * 1000 * 1000 * 1000 * 1000

// SizeValidator rejects packages at or over the aggregate size limit. The
// traversal is read-only.
type SizeValidator struct {
	Fs afero.Fs

	// Limit in bytes. Zero means MaxPackageSize.
	Limit int64
}

// Validate computes the total byte size of every file under root.
func (v SizeValidator) Validate(root string) Outcome {
	limit := v.Limit
	if limit == 0 {
		limit = MaxPackageSize
	}
	var total int64
	err := afero.Walk(v.Fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return CheckError(err)
	}
	if total >= limit {
		return Invalid("package exceeds maximum aggregate size")
	}
	return Valid()
}
