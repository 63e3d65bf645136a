package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketUnknownWithoutT0(t *testing.T) {
	assert.Equal(t, BucketUnknown, Bucket(123, nil))
}

func TestBucketBoundaries(t *testing.T) {
	t0 := int64(10_000)
	cases := []struct {
		offset int64
		want   string
	}{
		{-1, BucketPrelaunch},
		{0, Bucket0To2h},
		{2 * 3600, Bucket0To2h},
		{2*3600 + 1, Bucket2To24h},
		{24 * 3600, Bucket2To24h},
		{24*3600 + 1, Bucket24To72h},
		{72 * 3600, Bucket24To72h},
		{72*3600 + 1, BucketBeyond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Bucket(t0+tc.offset, &t0), "offset %d", tc.offset)
	}
}
