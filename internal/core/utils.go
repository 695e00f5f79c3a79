package core

import (
	"regexp"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile("[^a-z0-9_]+")
	slugDashes  = regexp.MustCompile("_+")
)

// Slugify converts a description into a check name, e.g.
// "Verify the number of rows" -> "verify_the_number_of_rows"
func Slugify(s string) string {
	s = strings.ToLower(s)

	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")

	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "_")

	return strings.Trim(s, "_")
}
