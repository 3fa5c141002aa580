package tags

import (
	"strconv"
	"strings"
	"time"
)

// WeeklyVersion returns the Unix time of Monday 00:00 of the week containing
// now, in now's location. CDN assets use it so caches bust once a week.
func WeeklyVersion(now time.Time) int64 {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location()).Unix()
}

// AppendVersion adds "?v=<version>" to url unless it already has a query.
func AppendVersion(url string, version int64) string {
	if strings.Contains(url, "?") {
		return url
	}
	return url + "?v=" + strconv.FormatInt(version, 10)
}
