package platform

import (
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
	}{
		{"s3://bucket", "bucket", ""},
		{"s3://bucket/", "bucket", ""},
		{"s3://bucket/train/train.csv", "bucket", "train/train.csv"},
		{"s3://my-bucket/a/b/model.tar.gz", "my-bucket", "a/b/model.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestParseS3URIInvalid(t *testing.T) {
	for _, uri := range []string{"", "bucket/key", "https://bucket/key", "s3://", "s3:///key"} {
		_, _, err := ParseS3URI(uri)
		var verr *errors.ValidationError
		assert.True(t, errors.As(err, &verr), "uri %q: got %v", uri, err)
	}
}

func TestS3URI(t *testing.T) {
	assert.Equal(t, "s3://b", S3URI("b"))
	assert.Equal(t, "s3://b/train", S3URI("b", "", "train"))
	assert.Equal(t, "s3://b/loans/train/train.csv", S3URI("b", "/loans/", "train", "train.csv"))
}
