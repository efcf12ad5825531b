package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonAlnum     = regexp.MustCompile(`[^A-Za-z0-9]+`)
	unsafeInPath = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// PascalCase joins the alphanumeric words of every part, upper-casing the
// first letter of each word: ("Shared_vpc", "id") -> "SharedVpcId".
func PascalCase(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, word := range nonAlnum.Split(part, -1) {
			if word == "" {
				continue
			}
			runes := []rune(word)
			runes[0] = unicode.ToUpper(runes[0])
			b.WriteString(string(runes))
		}
	}
	return b.String()
}

// TrimVpcSuffix removes the "_vpc" suffix ASEA appends to VPC names.
func TrimVpcSuffix(name string) string {
	return strings.TrimSuffix(name, "_vpc")
}

// RemoveSpaces strips every space from s.
func RemoveSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// SafeFileName turns a stack key into something usable as a file name.
func SafeFileName(s string) string {
	return strings.Trim(unsafeInPath.ReplaceAllString(s, "_"), "_")
}
