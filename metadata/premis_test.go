package metadata

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/uga-libraries/aip-aptrust/bagit"
)

const premisDoc = `<?xml version="1.0" encoding="UTF-8"?>
<preservation xmlns:dc="http://purl.org/dc/terms/" xmlns:premis="http://www.loc.gov/premis/v3">
  <dc:title>Demo Item</dc:title>
  <aip>
    <premis:object>
      <premis:objectIdentifier>
        <premis:objectIdentifierType>http://archive.libs.uga.edu/rbrl</premis:objectIdentifierType>
      </premis:objectIdentifier>
      <premis:relationship>
        <premis:relatedObjectIdentifier>
          <premis:relatedObjectIdentifierValue>rbrl-043</premis:relatedObjectIdentifierValue>
        </premis:relatedObjectIdentifier>
      </premis:relationship>
    </premis:object>
  </aip>
</preservation>`

const premisDocDLG = `<?xml version="1.0" encoding="UTF-8"?>
<preservation xmlns:dc="http://purl.org/dc/terms/" xmlns:premis="http://www.loc.gov/premis/v3">
  <dc:title>Newspaper Pages</dc:title>
  <aip>
    <premis:object>
      <premis:objectIdentifier>
        <premis:objectIdentifierType>http://archive.libs.uga.edu/dlg</premis:objectIdentifierType>
      </premis:objectIdentifier>
      <premis:relationship>
        <premis:relatedObjectIdentifier>
          <premis:relatedObjectIdentifierValue>dlg</premis:relatedObjectIdentifierValue>
        </premis:relatedObjectIdentifier>
      </premis:relationship>
      <premis:relationship>
        <premis:relatedObjectIdentifier>
          <premis:relatedObjectIdentifierValue>gua_1264</premis:relatedObjectIdentifierValue>
        </premis:relatedObjectIdentifier>
      </premis:relationship>
    </premis:object>
  </aip>
</preservation>`

const premisDocNoGroup = `<?xml version="1.0" encoding="UTF-8"?>
<preservation xmlns:dc="http://purl.org/dc/terms/" xmlns:premis="http://www.loc.gov/premis/v3">
  <dc:title>Orphan</dc:title>
  <aip>
    <premis:object/>
  </aip>
</preservation>`

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(strings.NewReader(premisDoc))
	require.NoError(t, err)
	require.Equal(t, "Demo Item", rec.Title)
	require.Equal(t, "rbrl", rec.Group)
	require.Equal(t, "rbrl-043", rec.Collection)
	require.Empty(t, rec.Access)
	require.Empty(t, rec.StorageOption)
}

func TestParseRecordDLG(t *testing.T) {
	// the first relationship is "dlg" and the real collection is second
	rec, err := ParseRecord(strings.NewReader(premisDocDLG))
	require.NoError(t, err)
	require.Equal(t, "dlg", rec.Group)
	require.Equal(t, "gua_1264", rec.Collection)
}

func TestParseRecordMissingGroup(t *testing.T) {
	_, err := ParseRecord(strings.NewReader(premisDocNoGroup))
	require.Error(t, err)
	var missing MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "premis:objectIdentifierType", missing.Field)
}

func TestParseRecordMalformed(t *testing.T) {
	_, err := ParseRecord(strings.NewReader("<unclosed>"))
	require.Error(t, err)
}

func TestReadRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"demo_001_bag/bagit.txt":                                  "BagIt-Version: 0.97\n",
		"demo_001_bag/data/metadata/demo_001_preservation.xml":    premisDoc,
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	b, err := bagit.Open(fs, "demo_001_bag")
	require.NoError(t, err)
	require.Equal(t, "data/metadata/demo_001_preservation.xml", DocumentPath(b))

	rec, err := ReadRecord(fs, b)
	require.NoError(t, err)
	require.Equal(t, "Demo Item", rec.Title)
}

func TestReadRecordMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "demo_002_bag/bagit.txt", []byte("BagIt-Version: 0.97\n"), 0644))
	b, err := bagit.Open(fs, "demo_002_bag")
	require.NoError(t, err)

	_, err = ReadRecord(fs, b)
	require.ErrorIs(t, err, ErrNoDocument)
}
