package epoch

// Time bucket labels for round entry offsets from the listing epoch.
const (
	BucketUnknown   = "unknown"
	BucketPrelaunch = "prelaunch"
	Bucket0To2h     = "0-2h"
	Bucket2To24h    = "2-24h"
	Bucket24To72h   = "24-72h"
	BucketBeyond    = ">72h"
)

// Bucket classifies a timestamp by its offset from t0. A missing t0
// disables bucketing rather than pretending the offset is known.
func Bucket(ts int64, t0 *int64) string {
	if t0 == nil {
		return BucketUnknown
	}
	dt := ts - *t0
	switch {
	case dt < 0:
		return BucketPrelaunch
	case dt <= 2*3600:
		return Bucket0To2h
	case dt <= 24*3600:
		return Bucket2To24h
	case dt <= 72*3600:
		return Bucket24To72h
	default:
		return BucketBeyond
	}
}
