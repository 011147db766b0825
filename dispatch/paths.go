package dispatch

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultAssetCandidates are the fleet listing paths seen across API
// generations, in the order they are probed.
var DefaultAssetCandidates = []string{
	"/fleet/{page}",
	"/fleet?pageNumber={page}",
	"/fleet/equipment?pageNumber={page}",
	"/assets?page={page}",
}

var makeModelSerial = regexp.MustCompile(`makeModelSerial/([^/]+)/([^/]+)/([^/?]+)`)

// expand fills the {page}, {start} and {end} placeholders of a candidate template.
func expand(template, page string, start, end time.Time) string {
	return strings.NewReplacer(
		"{page}", page,
		"{start}", start.UTC().Format(time.RFC3339),
		"{end}", end.UTC().Format(time.RFC3339),
	).Replace(template)
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}

// validSubPath accepts only relative vendor paths.
func validSubPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "://") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// assetRefFromPath returns the serial number of a makeModelSerial path.
func assetRefFromPath(p string) string {
	m := makeModelSerial.FindStringSubmatch(p)
	if m == nil {
		return ""
	}
	if serial, err := url.PathUnescape(m[3]); err == nil {
		return serial
	}
	return m[3]
}
