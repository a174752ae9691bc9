package transfer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/fanout/internal/domain"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	body, ok := f.objects[f.lastKey]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3FetcherOpen(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"photos/2026/a.jpg": "jpeg"}}
	f := NewS3Fetcher(api)

	rc, err := f.Open(context.Background(), "s3://photos/2026/a.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "photos/2026/a.jpg", api.lastKey)
}

func TestS3FetcherErrors(t *testing.T) {
	f := NewS3Fetcher(&fakeS3{objects: map[string]string{}})

	_, err := f.Open(context.Background(), "s3://photos/missing.jpg")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = f.Open(context.Background(), "s3://photos")
	assert.Error(t, err)

	_, err = f.Open(context.Background(), "http://photos/a.jpg")
	assert.ErrorIs(t, err, domain.ErrUnsupportedScheme)

	boom := errors.New("access denied")
	_, err = NewS3Fetcher(&fakeS3{err: boom}).Open(context.Background(), "s3://photos/a.jpg")
	assert.ErrorIs(t, err, boom)
}

func TestAttemptS3SourceThroughMux(t *testing.T) {
	fs := afero.NewMemMapFs()
	mux := NewMuxFetcher(nil, NewFileFetcher(fs))
	mux.Register("s3", NewS3Fetcher(&fakeS3{objects: map[string]string{"b/k.bin": "object body"}}))
	d := NewDownloader(fs, mux, 4)

	res, err := d.Attempt(context.Background(), domain.TransferUnit{Source: "s3://b/k.bin", Destination: "/out/k.bin"}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, res.Outcome)

	data, err := afero.ReadFile(fs, "/out/k.bin")
	require.NoError(t, err)
	assert.Equal(t, "object body", string(data))

	// http was not registered
	res, err = d.Attempt(context.Background(), domain.TransferUnit{Source: "http://example.com/x", Destination: "/out/x"}, false)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, err, domain.ErrUnsupportedScheme)
}
