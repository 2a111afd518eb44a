package metadata

import (
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/uga-libraries/aip-aptrust/bagit"
)

// ARCHiveURIPrefix starts every object identifier minted by ARCHive. The
// owning unit code is whatever follows it.
const ARCHiveURIPrefix = "http://archive.libs.uga.edu/"

// ErrNoDocument means the bag carries no preservation.xml where one is
// expected.
var ErrNoDocument = errors.New("no preservation document in bag")

// document mirrors the slice of the preservation.xml we consume. Element
// names are namespace qualified; everything else in the file is skipped by
// the decoder.
type document struct {
	Title  string `xml:"http://purl.org/dc/terms/ title"`
	Rights string `xml:"http://purl.org/dc/terms/ rights"`
	AIP    struct {
		Object struct {
			Identifiers []struct {
				Type string `xml:"http://www.loc.gov/premis/v3 objectIdentifierType"`
			} `xml:"http://www.loc.gov/premis/v3 objectIdentifier"`
			Relationships []struct {
				RelatedObject struct {
					Value string `xml:"http://www.loc.gov/premis/v3 relatedObjectIdentifierValue"`
				} `xml:"http://www.loc.gov/premis/v3 relatedObjectIdentifier"`
			} `xml:"http://www.loc.gov/premis/v3 relationship"`
		} `xml:"http://www.loc.gov/premis/v3 object"`
	} `xml:"aip"`
}

// ParseRecord reads a preservation document and extracts the fields the
// injector needs. The owning unit is required; a document without the
// ARCHive object identifier yields a MissingFieldError. All other fields are
// optional here, with absence policies applied at injection time.
func ParseRecord(r io.Reader) (*Record, error) {
	var doc document
	err := xml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, errors.Wrap(err, "parse preservation document")
	}

	rec := &Record{
		Title:  strings.TrimSpace(doc.Title),
		Access: strings.TrimSpace(doc.Rights),
	}

	// the owning unit code follows the ARCHive part of the URI
	for _, id := range doc.AIP.Object.Identifiers {
		uri := strings.TrimSpace(id.Type)
		if strings.HasPrefix(uri, ARCHiveURIPrefix) {
			rec.Group = strings.TrimPrefix(uri, ARCHiveURIPrefix)
			break
		}
	}
	if rec.Group == "" {
		return nil, MissingFieldError{Field: "premis:objectIdentifierType"}
	}

	// the first relationship names the collection. For DLG newspapers the
	// first relationship is "dlg" and the collection is the second one.
	rels := doc.AIP.Object.Relationships
	if len(rels) > 0 {
		rec.Collection = strings.TrimSpace(rels[0].RelatedObject.Value)
		if rec.Collection == "dlg" && len(rels) > 1 {
			rec.Collection = strings.TrimSpace(rels[1].RelatedObject.Value)
		}
	}
	return rec, nil
}

// DocumentPath returns the bag-relative path of the preservation document
// for the given bag. The file is named after the package identifier, so this
// lookup must happen before any renaming touches the metadata directory.
func DocumentPath(b *bagit.Bag) string {
	return path.Join(bagit.PayloadDir, "metadata", b.Identifier()+"_preservation.xml")
}

// ReadRecord locates and parses the preservation document inside a bag.
func ReadRecord(fs afero.Fs, b *bagit.Bag) (*Record, error) {
	name := path.Join(b.Path(), DocumentPath(b))
	ok, err := afero.Exists(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "read preservation document")
	}
	if !ok {
		return nil, ErrNoDocument
	}
	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "read preservation document")
	}
	defer f.Close()
	return ParseRecord(f)
}
