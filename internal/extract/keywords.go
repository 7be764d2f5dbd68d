package extract

import (
	"strings"

	"github.com/forgelight/foreman/internal/result"
)

// Change-kind keywords recognized in English and Japanese. The inference
// is a documented approximation: it scans a fixed window of text around
// the file path and falls back to "modify" when nothing matches.
var (
	createKeywords = []string{
		"create", "new file", "newly add", "add ",
		"作成", "新規", "追加",
	}
	deleteKeywords = []string{
		"delete", "remove",
		"削除",
	}
)

// inferChangeKind classifies a file change from its surrounding text.
func inferChangeKind(window string) result.ChangeKind {
	w := strings.ToLower(window)
	for _, k := range deleteKeywords {
		if strings.Contains(w, k) {
			return result.ChangeDelete
		}
	}
	for _, k := range createKeywords {
		if strings.Contains(w, k) {
			return result.ChangeCreate
		}
	}
	return result.ChangeModify
}

// parseChangeKind reads an explicit change-kind word, as found in plan
// tables, falling back to the keyword heuristic.
func parseChangeKind(s string) result.ChangeKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create", "add", "new":
		return result.ChangeCreate
	case "delete", "remove":
		return result.ChangeDelete
	case "modify", "update", "change", "edit":
		return result.ChangeModify
	}
	return inferChangeKind(s)
}
