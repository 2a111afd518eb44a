package metadata

import (
	"github.com/uga-libraries/aip-aptrust/bagit"
)

// APTrustInfoFile is the destination-specific tag file created in every
// converted bag.
const APTrustInfoFile = "aptrust-info.txt"

// Injector writes the destination repository's required metadata into a bag.
type Injector struct {
	Defaults Defaults
}

// Inject adds the four required tags to bag-info.txt, creates
// aptrust-info.txt, and refreshes the bag's tag manifests so it stays valid.
// Tags already present in bag-info.txt that we don't manage are left alone.
//
// Inject overwrites its own tags when run again, and both files come out
// identical on a second run, so re-processing a package is safe.
func (inj Injector) Inject(b *bagit.Bag, rec *Record) error {
	collection, err := resolve(rec.Collection, inj.Defaults.Collection, "collection identifier")
	if err != nil {
		return err
	}
	title, err := resolve(rec.Title, inj.Defaults.Title, "title")
	if err != nil {
		return err
	}
	access, err := resolve(rec.Access, inj.Defaults.Access, "access level")
	if err != nil {
		return err
	}
	storage, err := resolve(rec.StorageOption, inj.Defaults.StorageOption, "storage option")
	if err != nil {
		return err
	}
	if rec.Group == "" {
		return MissingFieldError{Field: "owning group"}
	}

	info, err := b.Tags(bagit.BagInfoFile)
	if err != nil {
		return err
	}
	info.Set("Source-Organization", inj.Defaults.SourceOrganization)
	info.Set("Internal-Sender-Description", inj.Defaults.SenderDescription+rec.Group)
	info.Set("Internal-Sender-Identifier", b.Identifier())
	info.Set("Bag-Group-Identifier", collection)
	if err := b.SetTags(bagit.BagInfoFile, info); err != nil {
		return err
	}

	aptrust := bagit.NewTagFile()
	aptrust.Set("Title", title)
	aptrust.Set("Access", access)
	aptrust.Set("Storage-Option", storage)
	if err := b.SetTags(APTrustInfoFile, aptrust); err != nil {
		return err
	}

	// both tag files changed, so the tag manifests are stale
	return b.UpdateTagManifests()
}
