// Package template provides message personalization over a fixed placeholder set.
package template

import (
	"regexp"
	"strconv"
	"strings"
)

// Personalize substitutes recipient fields into a message body. Both {{key}}
// and {key} placeholder syntaxes are accepted, case-insensitively, because
// campaign authors use them interchangeably. Placeholders that do not match a
// provided field are left intact rather than treated as errors.
func Personalize(body string, fields map[string]string) string {
	if body == "" {
		return ""
	}

	result := body

	for key, value := range fields {
		pattern, err := regexp.Compile(`(?i)\{\{` + regexp.QuoteMeta(key) + `\}\}|\{` + regexp.QuoteMeta(key) + `\}`)
		if err != nil {
			continue
		}

		result = pattern.ReplaceAllLiteralString(result, value)
	}

	return result
}

// HasPlaceholders reports whether a body contains any placeholder syntax.
// Used to short-circuit personalization for plain messages.
func HasPlaceholders(body string) bool {
	return strings.Contains(body, "{")
}

// StringFields flattens a metadata map into personalization fields. Only
// scalar values are kept; nested structures have no placeholder form.
func StringFields(metadata map[string]any) map[string]string {
	fields := make(map[string]string, len(metadata))

	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case bool:
			fields[key] = strconv.FormatBool(v)
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			fields[key] = strconv.Itoa(v)
		}
	}

	return fields
}
