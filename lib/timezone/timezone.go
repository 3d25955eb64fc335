package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Istanbul")
	if err != nil {
		panic(err)
	}
}

// force the clock into the portal's timezone so that date arithmetic
// (alert rate limiting, created_at stamps) is stable no matter where
// the process happens to run
func Now() time.Time {
	return time.Now().In(Location)
}
