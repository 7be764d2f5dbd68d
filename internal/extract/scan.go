// Package extract converts unstructured model output into typed stage
// results. Parsing is heuristic by design: it scans for recognizable
// headings, pipe tables, lists, and fenced code blocks rather than
// requiring any fixed output format.
package extract

import (
	"regexp"
	"strings"
)

var (
	headingPattern  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)
	listItemPattern = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)
	fencePattern    = regexp.MustCompile("^```")
	pathPattern     = regexp.MustCompile(`[\w~-]+(?:/[\w.~-]+)*\.\w{1,10}`)
)

// line is one scanned input line with its classification.
type line struct {
	raw     string
	heading string // heading text, empty if not a heading
}

// document is the scanned form of a model response.
type document struct {
	lines []line
}

// scan splits text into classified lines. Heading detection ignores
// content inside fenced code blocks.
func scan(text string) *document {
	raw := strings.Split(text, "\n")
	doc := &document{lines: make([]line, len(raw))}

	inFence := false
	for i, r := range raw {
		l := line{raw: r}
		if fencePattern.MatchString(strings.TrimSpace(r)) {
			inFence = !inFence
		} else if !inFence {
			if m := headingPattern.FindStringSubmatch(r); m != nil {
				l.heading = m[1]
			}
		}
		doc.lines[i] = l
	}
	return doc
}

// matchesHeading reports whether a heading matches one of the canonical
// names by case-insensitive substring, independent of heading depth.
func matchesHeading(heading string, names ...string) bool {
	h := strings.ToLower(heading)
	for _, name := range names {
		if strings.Contains(h, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// firstHeading returns the text of the first heading in the document,
// or "" when none exists.
func (d *document) firstHeading() string {
	for _, l := range d.lines {
		if l.heading != "" {
			return l.heading
		}
	}
	return ""
}

// section returns the lines between the first heading matching one of
// names and the next heading of any depth. Returns nil when no heading
// matches.
func (d *document) section(names ...string) []string {
	start := -1
	for i, l := range d.lines {
		if start < 0 {
			if l.heading != "" && matchesHeading(l.heading, names...) {
				start = i + 1
			}
			continue
		}
		if l.heading != "" {
			return rawLines(d.lines[start:i])
		}
	}
	if start < 0 {
		return nil
	}
	return rawLines(d.lines[start:])
}

func rawLines(ls []line) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.raw
	}
	return out
}

// listItems extracts bulleted or numbered list entries from lines,
// skipping anything inside fenced code blocks.
func listItems(lines []string) []string {
	var items []string
	inFence := false
	for _, l := range lines {
		if fencePattern.MatchString(strings.TrimSpace(l)) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := listItemPattern.FindStringSubmatch(l); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return items
}

// tableRows parses pipe-delimited table rows. The first row is treated
// as the header; separator rows (dashes and colons) are dropped. Returns
// the header cells and the data rows.
func tableRows(lines []string) (header []string, rows [][]string) {
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) == 0 {
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	return header, rows
}

// splitRow splits a pipe-delimited row into trimmed cells.
func splitRow(row string) []string {
	row = strings.Trim(row, "|")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow reports whether every cell is a markdown alignment
// separator like "---" or ":---:".
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// columnIndex returns the index of the first header cell containing any
// of the given names (case-insensitive), or -1.
func columnIndex(header []string, names ...string) int {
	for i, cell := range header {
		if matchesHeading(cell, names...) {
			return i
		}
	}
	return -1
}

// cell returns row[i] or "" when the row is too short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// codeBlock is a fenced code block with its surrounding label context.
type codeBlock struct {
	lang    string
	content string
	// label holds the text lines immediately preceding the fence,
	// newest last, used for file-path detection.
	label []string
}

// codeBlocks extracts fenced code blocks together with a small window of
// preceding lines.
func codeBlocks(text string) []codeBlock {
	const labelWindow = 4

	lines := strings.Split(text, "\n")
	var blocks []codeBlock

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}

		block := codeBlock{lang: strings.TrimPrefix(trimmed, "```")}
		start := i - labelWindow
		if start < 0 {
			start = 0
		}
		for _, l := range lines[start:i] {
			if strings.TrimSpace(l) != "" {
				block.label = append(block.label, l)
			}
		}

		var body []string
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				break
			}
			body = append(body, lines[j])
		}
		block.content = strings.Join(body, "\n")
		blocks = append(blocks, block)
		i = j
	}
	return blocks
}

// findPath searches the block's info string and label window for a
// file-path-shaped token. Returns "" when none is found.
func (b codeBlock) findPath() string {
	// Info strings like ```go:cmd/main.go carry the path directly.
	if idx := strings.IndexByte(b.lang, ':'); idx >= 0 {
		if p := pathPattern.FindString(b.lang[idx+1:]); p != "" {
			return p
		}
	}
	for i := len(b.label) - 1; i >= 0; i-- {
		if p := pathPattern.FindString(b.label[i]); p != "" {
			return p
		}
	}
	return ""
}

// firstParagraph returns the first non-heading, non-list prose block in
// the text, used as a fallback summary message.
func firstParagraph(text string) string {
	doc := scan(text)
	var para []string
	inFence := false
	for _, l := range doc.lines {
		trimmed := strings.TrimSpace(l.raw)
		if fencePattern.MatchString(trimmed) {
			inFence = !inFence
			continue
		}
		if inFence || l.heading != "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if listItemPattern.MatchString(l.raw) || strings.HasPrefix(trimmed, "|") {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}
	return strings.Join(para, " ")
}
