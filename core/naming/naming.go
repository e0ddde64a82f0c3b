// Package naming derives client component paths from page identifiers.
// It applies the action-suffix convention so declarations stay minimal.
package naming

import "strings"

// actionWords is the closed vocabulary of trailing CRUD-style action
// segments. A recognized action splits the identifier into nested
// namespaces plus the action itself.
var actionWords = map[string]bool{
	"index":  true,
	"show":   true,
	"new":    true,
	"edit":   true,
	"create": true,
	"update": true,
	"delete": true,
}

// Infer converts an underscore-delimited page identifier into a
// slash-joined PascalCase component path.
//
//	users_index       -> Users/Index
//	admin_users_index -> Admin/Users/Index
//	dashboard         -> Dashboard
//	user_profile      -> UserProfile
//
// Segments preceding a recognized trailing action become nested namespace
// components, each PascalCased individually. Without a recognized action
// all segments collapse into a single PascalCase token. Infer is pure and
// deterministic; contracts may override the result explicitly.
func Infer(pageID string) string {
	segments := strings.Split(pageID, "_")
	last := segments[len(segments)-1]

	if !actionWords[last] {
		// No action: the whole identifier is one component name.
		return Pascal(segments...)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments[:len(segments)-1] {
		parts = append(parts, Pascal(seg))
	}
	parts = append(parts, Pascal(last))
	return strings.Join(parts, "/")
}

// IsAction reports whether word is in the recognized action vocabulary.
func IsAction(word string) bool {
	return actionWords[word]
}

// Action returns the trailing action segment of pageID, or the whole
// identifier when no action is recognized. Provider inclusion predicates
// match against this value.
func Action(pageID string) string {
	segments := strings.Split(pageID, "_")
	last := segments[len(segments)-1]
	if actionWords[last] {
		return last
	}
	return pageID
}

// Pascal joins segments into a single PascalCase token.
func Pascal(segments ...string) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		b.WriteString(strings.ToUpper(seg[:1]))
		b.WriteString(seg[1:])
	}
	return b.String()
}
