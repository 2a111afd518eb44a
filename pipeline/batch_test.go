package pipeline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestBatchIsolatesFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeDemoBag(t, fs, "batch/demo_010_bag")
	makeDemoBag(t, fs, "batch/demo_011_bag")
	// tamper with one package after its manifests were computed
	require.NoError(t, afero.WriteFile(fs, "batch/demo_010_bag/data/-badname\tfile.txt", []byte("tampered"), 0644))
	// stray file in the batch directory is ignored
	require.NoError(t, afero.WriteFile(fs, "batch/conversion_log.csv", []byte("x"), 0644))

	c := controller(fs)
	c.ErrorsDir = "batch/errors"
	b := &Batch{Controller: c}
	results, err := b.Run("batch")
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, StateFailed, results[0].State)
	require.Equal(t, "demo_010", results[0].Identifier)
	require.Equal(t, StateDone, results[1].State)
	require.Equal(t, "demo_011", results[1].Identifier)

	ok, _ := afero.Exists(fs, "batch/errors/bag-invalid/demo_010_bag")
	require.True(t, ok, "the failed package is quarantined")
	ok, _ = afero.Exists(fs, "batch/demo_011_bag/aptrust-info.txt")
	require.True(t, ok, "the good package still converts")
}

func TestBatchSkipsHoldingArea(t *testing.T) {
	fs := afero.NewMemMapFs()
	makeDemoBag(t, fs, "batch/demo_012_bag")
	require.NoError(t, fs.MkdirAll("batch/errors/bag-invalid/old_bag", 0775))

	c := controller(fs)
	c.ErrorsDir = "batch/errors"
	b := &Batch{Controller: c}
	results, err := b.Run("batch")
	require.NoError(t, err)
	require.Len(t, results, 1, "quarantined packages are not reprocessed")
}

func TestBatchParallel(t *testing.T) {
	fs := afero.NewMemMapFs()
	dirs := []string{
		"batch/demo_020_bag",
		"batch/demo_021_bag",
		"batch/demo_022_bag",
		"batch/demo_023_bag",
	}
	for _, dir := range dirs {
		makeDemoBag(t, fs, dir)
	}

	b := &Batch{Controller: controller(fs), Workers: 4}
	results, err := b.Run("batch")
	require.NoError(t, err)
	require.Len(t, results, len(dirs))
	for i, res := range results {
		require.Equal(t, StateDone, res.State, "package %d", i)
	}
}
