// Package fetch retrieves packaged AIPs from an S3 receiving bucket and
// stages them on local disk for processing.
package fetch

import (
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// archiveSuffixes are the object keys we consider to be packaged AIPs.
// Anything else in the bucket is left alone.
var archiveSuffixes = []string{".tar", ".tar.gz", ".tar.bz2"}

// objectAPI is the part of the S3 client we use. It is satisfied by *s3.S3.
type objectAPI interface {
	ListObjectsV2Pages(*s3.ListObjectsV2Input, func(*s3.ListObjectsV2Output, bool) bool) error
	GetObject(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	DeleteObject(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
}

// A Source represents a receiving bucket holding packaged AIPs. Do not change
// Bucket or Prefix concurrently with calls using the structure.
type Source struct {
	svc    objectAPI
	Bucket string
	Prefix string
}

// NewSource creates a Source for the given bucket. It will prepend prefix to
// all keys, so one bucket can serve more than one deposit stream. The
// authorization method and credentials in the session are used for all
// accesses.
func NewSource(bucket, prefix string, awsSession *session.Session) *Source {
	return &Source{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
	}
}

// List returns the keys of every packaged AIP under the source's prefix,
// with the prefix removed. Keys without a recognized archive suffix are
// skipped.
func (s *Source) List() ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				key := strings.TrimPrefix(*item.Key, s.Prefix)
				if isArchive(key) {
					result = append(result, key)
				}
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 List:", s.Prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
	}
	return result, err
}

// Download copies the object for key into destdir, keeping the key's base
// name. It returns the path of the staged file. A partial file left by a
// failed transfer is removed.
func (s *Source) Download(fs afero.Fs, key, destdir string) (string, error) {
	output, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Download:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
		return "", errors.Wrap(err, "downloading "+key)
	}
	defer output.Body.Close()

	target := filepath.Join(destdir, path.Base(key))
	f, err := fs.Create(target)
	if err != nil {
		return "", errors.Wrap(err, "staging "+key)
	}
	_, err = io.Copy(f, output.Body)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		fs.Remove(target)
		return "", errors.Wrap(err, "staging "+key)
	}
	return target, nil
}

// Delete removes the given key from the bucket. The source's Prefix is
// prepended first. It is not an error to delete something that doesn't exist.
func (s *Source) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": key})
	}
	return err
}

func isArchive(key string) bool {
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}
