package crypto

import "time"

// Clock is a provider of the verification time.
type Clock func() time.Time

// NewConstantClock returns a Clock that always reads the given unix time.
func NewConstantClock(unixTime int64) Clock {
	return func() time.Time {
		return time.Unix(unixTime, 0)
	}
}
