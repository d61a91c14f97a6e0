package birthday

import "strings"

// Common IANA zone names offered by the timezone autocomplete. Discord caps
// autocomplete at 25 choices, so FilterTimezones narrows this list against
// what the user has typed so far.
var timezones = []string{
	"Africa/Cairo",
	"Africa/Johannesburg",
	"Africa/Lagos",
	"Africa/Nairobi",
	"America/Anchorage",
	"America/Argentina/Buenos_Aires",
	"America/Bogota",
	"America/Chicago",
	"America/Denver",
	"America/Halifax",
	"America/Lima",
	"America/Los_Angeles",
	"America/Mexico_City",
	"America/New_York",
	"America/Phoenix",
	"America/Santiago",
	"America/Sao_Paulo",
	"America/St_Johns",
	"America/Toronto",
	"America/Vancouver",
	"Asia/Bangkok",
	"Asia/Dubai",
	"Asia/Hong_Kong",
	"Asia/Jakarta",
	"Asia/Jerusalem",
	"Asia/Karachi",
	"Asia/Kolkata",
	"Asia/Kuala_Lumpur",
	"Asia/Manila",
	"Asia/Seoul",
	"Asia/Shanghai",
	"Asia/Singapore",
	"Asia/Taipei",
	"Asia/Tokyo",
	"Atlantic/Azores",
	"Atlantic/Reykjavik",
	"Australia/Adelaide",
	"Australia/Brisbane",
	"Australia/Melbourne",
	"Australia/Perth",
	"Australia/Sydney",
	"Europe/Amsterdam",
	"Europe/Athens",
	"Europe/Berlin",
	"Europe/Dublin",
	"Europe/Helsinki",
	"Europe/Istanbul",
	"Europe/Kyiv",
	"Europe/Lisbon",
	"Europe/London",
	"Europe/Madrid",
	"Europe/Moscow",
	"Europe/Oslo",
	"Europe/Paris",
	"Europe/Prague",
	"Europe/Rome",
	"Europe/Stockholm",
	"Europe/Vienna",
	"Europe/Warsaw",
	"Europe/Zurich",
	"Pacific/Auckland",
	"Pacific/Fiji",
	"Pacific/Honolulu",
	"UTC",
}

// FilterTimezones returns up to limit zone names containing the typed
// substring, case-insensitively. An empty query returns the head of the
// list.
func FilterTimezones(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []string
	for _, tz := range timezones {
		if query != "" && !strings.Contains(strings.ToLower(tz), query) {
			continue
		}
		out = append(out, tz)
		if len(out) == limit {
			break
		}
	}
	return out
}

// IsKnownTimezone reports whether the exact zone name is in the offered
// list. Values arriving outside autocomplete are still validated with
// time.LoadLocation before storage.
func IsKnownTimezone(name string) bool {
	for _, tz := range timezones {
		if tz == name {
			return true
		}
	}
	return false
}
