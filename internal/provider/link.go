package provider

import "regexp"

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// parseLinkNext extracts the rel="next" URL from an RFC 8288 Link header.
func parseLinkNext(header string) string {
	m := linkNextRe.FindStringSubmatch(header)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
