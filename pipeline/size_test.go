package pipeline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestSizeValidator(t *testing.T) {
	var table = []struct {
		name  string
		sizes []int // one payload file per entry
		limit int64
		ok    bool
	}{
		{"under", []int{4, 5}, 10, true},
		{"at-limit", []int{4, 6}, 10, false},
		{"over", []int{20}, 10, false},
		{"empty", nil, 10, true},
	}
	for _, tab := range table {
		t.Run(tab.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll("pkg/data", 0775))
			for i, n := range tab.sizes {
				content := make([]byte, n)
				require.NoError(t, afero.WriteFile(fs, "pkg/data/f"+string(rune('a'+i)), content, 0644))
			}
			v := SizeValidator{Fs: fs, Limit: tab.limit}
			out := v.Validate("pkg")
			require.NoError(t, out.Err)
			require.Equal(t, tab.ok, out.IsValid())
			if !tab.ok {
				require.Equal(t, []string{"package exceeds maximum aggregate size"}, out.Problems)
			}
		})
	}
}

func TestSizeValidatorDefaultLimit(t *testing.T) {
	// a small package is safely under the 5 TB default
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "pkg/data/f", []byte("hello"), 0644))
	out := SizeValidator{Fs: fs}.Validate("pkg")
	require.True(t, out.IsValid())
}
