package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	var table = []struct {
		name    string
		reasons []Reason
	}{
		{"regular-name.txt", nil},
		{"", []Reason{ReasonEmpty}},
		{"-leading.txt", []Reason{ReasonLeadingDash}},
		{"tab\there.txt", []Reason{ReasonControlChar}},
		{"line\nbreak", []Reason{ReasonControlChar}},
		{"cr\rhere", []Reason{ReasonControlChar}},
		{"vertical\vtab", []Reason{ReasonControlChar}},
		{"bell\ahere", []Reason{ReasonControlChar}},
		{"-bad\tname", []Reason{ReasonLeadingDash, ReasonControlChar}},
		// 254, 255, and 256 bytes. The limit is measured in bytes.
		{strings.Repeat("a", 254), nil},
		{strings.Repeat("a", 255), nil},
		{strings.Repeat("a", 256), []Reason{ReasonTooLong}},
		// interior dashes are fine
		{"mid-dash-name", nil},
	}
	for _, tab := range table {
		require.Equal(t, tab.reasons, Check(tab.name), "Check(%q)", tab.name)
	}
}

func TestClean(t *testing.T) {
	var table = []struct {
		name   string
		expect string
	}{
		{"-badname\tfile.txt", "_badname_file.txt"},
		{"", "_"},
		{"-", "_"},
		{"\t", "_"},
		{"a\nb\rc", "a_b_c"},
		{"fine.txt", "fine.txt"},
		{"--double", "_-double"},
	}
	for _, tab := range table {
		require.Equal(t, tab.expect, Clean(tab.name), "Clean(%q)", tab.name)
	}
}

func TestCleanTruncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"
	got := Clean(long)
	require.Len(t, got, MaxNameBytes)
	require.True(t, strings.HasSuffix(got, ".txt"), "extension should survive truncation")
}

func TestCleanTruncateRuneBoundary(t *testing.T) {
	// 2-byte runes, litter the boundary
	long := strings.Repeat("é", 200)
	got := Clean(long)
	require.LessOrEqual(t, len(got), MaxNameBytes)
	require.True(t, strings.HasSuffix(got, "é") || got == "",
		"truncation must not split a rune: %q", got[len(got)-4:])
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"-badname\tfile.txt",
		"",
		"\a\v\r\n",
		strings.Repeat("-", 300),
		"normal.txt",
	}
	for _, in := range inputs {
		once := Clean(in)
		require.Nil(t, Check(once), "Clean(%q) = %q still fails Check", in, once)
		require.Equal(t, once, Clean(once), "Clean is not idempotent for %q", in)
	}
}
