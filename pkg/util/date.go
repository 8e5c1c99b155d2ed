package util

import (
	"strings"
	"time"
)

// dateTplReplacer maps placeholders to Go layout elements. Longer
// placeholders come first so YYYY is not read as two YY.
var dateTplReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats a timestamp in milliseconds since the Unix epoch
// using a template with placeholders, in local time.
//
// Supported placeholders:
// - YYYY: 4-digit year
// - YY: 2-digit year
// - MM: 2-digit month (01-12)
// - DD: 2-digit day (01-31)
// - hh: 2-digit hour (00-23)
// - mm: 2-digit minute (00-59)
// - ss: 2-digit second (00-59)
//
// It returns an empty string if ts == 0.
//
// Example:
//
//	ts := int64(1699603200000)
//	FormatDateTpl(ts, "YYYY.MM.DD")       // "2023.11.10"
//	FormatDateTpl(ts, "YYYY-MM-DD hh:mm") // "2023-11-10 08:00" in UTC+8
func FormatDateTpl(ts int64, tpl string) string {
	if ts == 0 {
		return ""
	}
	return time.UnixMilli(ts).Format(dateTplReplacer.Replace(tpl))
}
