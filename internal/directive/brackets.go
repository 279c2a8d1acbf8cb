package directive

import "strings"

// The directive producer escapes literal square brackets so its own CDATA
// wrappers survive transport; the placeholders are swapped back before
// scanning.
const (
	leftPlaceholder  = "|||LBR|||"
	rightPlaceholder = "|||RBR|||"
)

// EncodeBrackets replaces literal brackets with transport placeholders.
func EncodeBrackets(s string) string {
	s = strings.ReplaceAll(s, "[", leftPlaceholder)
	return strings.ReplaceAll(s, "]", rightPlaceholder)
}

// DecodeBrackets restores literal brackets from transport placeholders.
func DecodeBrackets(s string) string {
	s = strings.ReplaceAll(s, leftPlaceholder, "[")
	return strings.ReplaceAll(s, rightPlaceholder, "]")
}
