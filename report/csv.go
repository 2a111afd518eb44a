package report

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/uga-libraries/aip-aptrust/pipeline"
)

// Default log file names, written into the batch directory.
const (
	ConversionLogName = "conversion-log.csv"
	RenameLogName     = "renaming.csv"
)

var conversionHeader = []string{"Time", "Package", "Bag", "State", "Category", "Reasons"}

var renameHeader = []string{"Package", "Original Path", "New Path", "Reasons"}

// AppendConversionLog adds one row per result to the conversion log at path,
// creating the file with a header row first if it does not already exist.
// Results from successive batch runs accumulate in the same file.
func AppendConversionLog(fs afero.Fs, path string, results []*pipeline.Result) error {
	return appendRows(fs, path, conversionHeader, func(w *csv.Writer) error {
		now := time.Now()
		for _, res := range results {
			out, _ := rows("", res, now)
			row := []string{
				out.When.Format(time.RFC3339),
				out.PackageID,
				out.BagName,
				out.State,
				out.Category,
				out.Reasons,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendRenameLog adds one row per applied rename to the rename log at path,
// creating the file with a header row first if needed. Results with no
// renames contribute nothing.
func AppendRenameLog(fs afero.Fs, path string, results []*pipeline.Result) error {
	return appendRows(fs, path, renameHeader, func(w *csv.Writer) error {
		for _, res := range results {
			_, renames := rows("", res, time.Time{})
			for _, r := range renames {
				row := []string{r.PackageID, r.OldPath, r.NewPath, r.Reasons}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func appendRows(fs afero.Fs, path string, header []string, write func(*csv.Writer) error) error {
	needHeader := false
	info, err := fs.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		needHeader = true
	} else if err != nil {
		return errors.Wrap(err, "opening log")
	}
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "opening log")
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "writing log")
		}
	}
	if err := write(w); err != nil {
		return errors.Wrap(err, "writing log")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "writing log")
}
