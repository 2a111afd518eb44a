package fetch

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// stubAPI serves canned objects in place of a live bucket.
type stubAPI struct {
	objects map[string][]byte
	deleted []string
}

func (s *stubAPI) ListObjectsV2Pages(input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool) error {
	var contents []*s3.Object
	for key := range s.objects {
		contents = append(contents, &s3.Object{Key: aws.String(key)})
	}
	fn(&s3.ListObjectsV2Output{Contents: contents}, true)
	return nil
}

func (s *stubAPI) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	data, ok := s.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(data))}, nil
}

func (s *stubAPI) DeleteObject(input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	delete(s.objects, *input.Key)
	s.deleted = append(s.deleted, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testSource() (*Source, *stubAPI) {
	api := &stubAPI{objects: map[string][]byte{
		"deposits/demo_001_bag.tar.bz2": []byte("archive one"),
		"deposits/demo_002_bag.tar":     []byte("archive two"),
		"deposits/notes.txt":            []byte("not an archive"),
	}}
	return &Source{svc: api, Bucket: "receiving", Prefix: "deposits/"}, api
}

func TestListFiltersArchives(t *testing.T) {
	src, _ := testSource()
	keys, err := src.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"demo_001_bag.tar.bz2", "demo_002_bag.tar"}, keys)
}

func TestDownload(t *testing.T) {
	src, _ := testSource()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("staging", 0755))

	target, err := src.Download(fs, "demo_001_bag.tar.bz2", "staging")
	require.NoError(t, err)
	require.Equal(t, "staging/demo_001_bag.tar.bz2", target)
	data, err := afero.ReadFile(fs, target)
	require.NoError(t, err)
	require.Equal(t, "archive one", string(data))
}

func TestDownloadMissingKey(t *testing.T) {
	src, _ := testSource()
	fs := afero.NewMemMapFs()
	_, err := src.Download(fs, "no-such-key.tar", "staging")
	require.Error(t, err)
	exists, err2 := afero.Exists(fs, "staging/no-such-key.tar")
	require.NoError(t, err2)
	require.False(t, exists)
}

func TestDelete(t *testing.T) {
	src, api := testSource()
	require.NoError(t, src.Delete("demo_002_bag.tar"))
	require.Equal(t, []string{"deposits/demo_002_bag.tar"}, api.deleted)
	keys, err := src.List()
	require.NoError(t, err)
	require.Equal(t, []string{"demo_001_bag.tar.bz2"}, keys)
}
