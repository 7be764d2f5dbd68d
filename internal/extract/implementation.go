package extract

import (
	"strings"

	"github.com/forgelight/foreman/internal/result"
)

// FileChange is an extracted file change carrying the new file content.
// The content is applied to disk by the executor and never stored on the
// final implementation record.
type FileChange struct {
	Path    string
	Action  result.ChangeKind
	Summary string
	Content string
}

// ImplementationOutput is the extraction result for the implementation
// stage. Unlike plans and reviews there is no validity gate: zero file
// changes is a plausible output (a no-op fix), not a parse failure.
type ImplementationOutput struct {
	Message     string
	FileChanges []FileChange
}

// Implementation extracts labeled code blocks from model output. A block
// is labeled when its info string or a nearby preceding line contains a
// file-path-shaped token.
func Implementation(text string) ImplementationOutput {
	out := ImplementationOutput{
		Message: implementationMessage(text),
	}

	seen := make(map[string]int)
	for _, block := range codeBlocks(text) {
		path := block.findPath()
		if path == "" {
			continue
		}

		change := FileChange{
			Path:    path,
			Action:  inferChangeKind(strings.Join(block.label, "\n")),
			Summary: blockSummary(block, path),
			Content: block.content,
		}

		// A later block for the same path supersedes the earlier one.
		if idx, ok := seen[path]; ok {
			out.FileChanges[idx] = change
			continue
		}
		seen[path] = len(out.FileChanges)
		out.FileChanges = append(out.FileChanges, change)
	}
	return out
}

func implementationMessage(text string) string {
	doc := scan(text)
	if lines := doc.section("summary", "overview", "概要"); lines != nil {
		if msg := strings.TrimSpace(strings.Join(compactLines(lines), " ")); msg != "" {
			return msg
		}
	}
	if msg := firstParagraph(text); msg != "" {
		return msg
	}
	return "implementation generated"
}

// blockSummary derives a one-line summary from the label line that
// mentions the path, with the path itself stripped.
func blockSummary(block codeBlock, path string) string {
	for i := len(block.label) - 1; i >= 0; i-- {
		l := block.label[i]
		if !strings.Contains(l, path) {
			continue
		}
		s := strings.Replace(l, path, "", 1)
		s = strings.Trim(s, "#`*:—–- \t")
		if s != "" {
			return s
		}
	}
	return ""
}

func compactLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
