package git

import "strings"

// SplitURLAndRef splits a repository URL carrying an optional trailing
// "#ref" fragment into the clone URL and the ref. The ref is empty when
// no fragment is present.
//
//	SplitURLAndRef("https://github.com/a/b#v1.2.0") // "https://github.com/a/b", "v1.2.0"
func SplitURLAndRef(s string) (string, string) {
	idx := strings.LastIndex(s, "#")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}
