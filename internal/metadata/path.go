package metadata

import "strings"

var actionSuffixes = map[string]bool{
	"list":   true,
	"create": true,
	"update": true,
	"delete": true,
}

// EntityFromPath extracts the logical entity name from a request path.
// Precedence:
//
//  1. the segment after "master"
//  2. the segment after "api"
//  3. the second-to-last segment when the last one is an action suffix
//     (list, create, update, delete)
//  4. the last segment
//
// It returns "" for an empty path.
func EntityFromPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	if name := segmentAfter(parts, "master"); name != "" {
		return name
	}
	if name := segmentAfter(parts, "api"); name != "" && name != "master" {
		return name
	}
	last := parts[len(parts)-1]
	if len(parts) >= 2 && actionSuffixes[last] {
		return parts[len(parts)-2]
	}
	return last
}

func segmentAfter(parts []string, marker string) string {
	for i, p := range parts {
		if p == marker && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
