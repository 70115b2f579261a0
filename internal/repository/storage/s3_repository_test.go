package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"electroCare/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestPutObject(t *testing.T) {
	t.Run("stores and returns public url", func(t *testing.T) {
		putter := new(mockPutter)
		putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Bucket) == "uploads" &&
				aws.ToString(in.Key) == "uploads/7/a.png" &&
				aws.ToString(in.ContentType) == "image/png"
		})).Return(&s3.PutObjectOutput{}, nil)

		repo := &S3Repository{client: putter, cfg: S3Config{Bucket: "uploads", PublicBaseURL: "https://cdn.electrocare.app/"}}
		url, err := repo.PutObject(context.Background(), "uploads/7/a.png", "image/png", strings.NewReader("png"), 3)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.electrocare.app/uploads/7/a.png", url)
		putter.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		putter := new(mockPutter)
		putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

		repo := &S3Repository{client: putter, cfg: S3Config{Bucket: "uploads"}}
		_, err := repo.PutObject(context.Background(), "k", "image/png", io.LimitReader(strings.NewReader(""), 0), 0)
		assert.True(t, errors.Is(err, domain.ErrUpstream))
	})
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/k", (&S3Repository{cfg: S3Config{Bucket: "b", Region: "eu-west-1"}}).PublicURL("k"))
	assert.Equal(t, "http://minio:9000/b/k", (&S3Repository{cfg: S3Config{Bucket: "b", Endpoint: "http://minio:9000/"}}).PublicURL("k"))
}
