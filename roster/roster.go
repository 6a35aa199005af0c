// Package roster parses pasted student lists.
package roster

import "strings"

// Parse splits text on commas and newlines, trims each name and drops
// blanks. Order is preserved and duplicates are kept, since two students
// may share a name.
func Parse(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := strings.TrimSpace(f); n != "" {
			names = append(names, n)
		}
	}
	return names
}
