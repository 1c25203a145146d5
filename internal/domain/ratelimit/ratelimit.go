package ratelimit

import "time"

// Dimension is one identity axis a counter is keyed on.
type Dimension string

const (
	DimensionUser   Dimension = "user"
	DimensionIP     Dimension = "ip"
	DimensionDevice Dimension = "device"
)

// Identity carries the caller's identity values. Empty values mean the
// dimension is unavailable for this call and is skipped, not failed.
type Identity struct {
	UserID   string
	IP       string
	DeviceID string
}

// Thresholds derives the per-dimension attempt ceilings from the user-scoped
// base limit: IP gets double, device gets 1.5x floored.
type Thresholds struct {
	User   int
	IP     int
	Device int
}

func NewThresholds(maxAttempts int) Thresholds {
	return Thresholds{
		User:   maxAttempts,
		IP:     maxAttempts * 2,
		Device: maxAttempts * 3 / 2,
	}
}

func (t Thresholds) For(d Dimension) int {
	switch d {
	case DimensionUser:
		return t.User
	case DimensionIP:
		return t.IP
	case DimensionDevice:
		return t.Device
	default:
		return 0
	}
}

// Dimensions returns the (dimension, value) pairs present on the identity,
// in a stable order.
func (i Identity) Dimensions() []struct {
	Dimension Dimension
	Value     string
} {
	var out []struct {
		Dimension Dimension
		Value     string
	}
	if i.UserID != "" {
		out = append(out, struct {
			Dimension Dimension
			Value     string
		}{DimensionUser, i.UserID})
	}
	if i.IP != "" {
		out = append(out, struct {
			Dimension Dimension
			Value     string
		}{DimensionIP, i.IP})
	}
	if i.DeviceID != "" {
		out = append(out, struct {
			Dimension Dimension
			Value     string
		}{DimensionDevice, i.DeviceID})
	}
	return out
}

// WindowStart buckets now into a fixed window. This is a fixed-window
// approximation of a sliding window: a burst straddling a bucket boundary
// can see up to 2x the limit. Accepted trade for a single atomic counter
// per bucket.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
