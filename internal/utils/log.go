package utils

import "strings"

const ellipsis = "..."

// TruncateForLog folds s onto a single line and cuts it to limit runes.
// Message bodies span several lines; a preview never does.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	line := strings.Join(strings.Fields(s), " ")
	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}
