// Package metadata reads the descriptive-metadata document exported with
// each package and writes the two tag files the destination repository
// requires. The document is a preservation.xml using PREMIS and Dublin Core
// terms; only the handful of fields consumed here are specified, the rest of
// the schema is ignored.
package metadata

import "fmt"

// Record holds the descriptive-metadata fields consumed by the injector.
// It is read-only input; the pipeline never writes it back.
type Record struct {
	// Title of the packaged content.
	Title string

	// Group is the owning unit's code, taken from the ARCHive URI in the
	// first PREMIS object identifier.
	Group string

	// Collection is the identifier of the collection this package belongs
	// to, when it belongs to one.
	Collection string

	// Access is the rights/access level for the destination repository.
	Access string

	// StorageOption is the destination storage tier.
	StorageOption string
}

// Defaults is the table of values substituted when a record field is absent,
// plus the constants stamped into every package. A zero value for one of the
// substitutable fields marks that field required: injection fails with a
// MissingFieldError instead of writing an empty value.
//
// Pass Defaults explicitly rather than relying on package state so tests and
// alternate deployments can vary it.
type Defaults struct {
	// SourceOrganization is written verbatim into every bag-info.txt.
	SourceOrganization string

	// SenderDescription prefixes the owning unit code in the
	// Internal-Sender-Description tag.
	SenderDescription string

	// Substitutes for absent record fields.
	Collection    string
	Title         string
	Access        string
	StorageOption string
}

// DefaultTable returns the values used for UGA packages.
func DefaultTable() Defaults {
	return Defaults{
		SourceOrganization: "University of Georgia",
		SenderDescription:  "UGA unit: ",
		Collection:         "This AIP is not part of a collection.",
		Title:              "Untitled",
		Access:             "Institution",
		StorageOption:      "Glacier-Deep-OR",
	}
}

// MissingFieldError reports a record field which is absent and has no
// default to fall back on.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("descriptive metadata is missing the %s field", e.Field)
}

// resolve picks the record value, then the default, and fails when neither
// is present. An empty value is never written.
func resolve(value, def, field string) (string, error) {
	if value != "" {
		return value, nil
	}
	if def != "" {
		return def, nil
	}
	return "", MissingFieldError{Field: field}
}
