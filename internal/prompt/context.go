package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// structurePatterns selects the files worth showing in the project
// structure summary.
var structurePatterns = []string{
	"**/*.go", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.py", "**/*.rs",
	"**/*.md", "**/*.yaml", "**/*.yml", "**/*.json", "**/*.toml",
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	".idea":        true,
}

// projectStructure lists project files matched by the structure
// patterns, bounded by maxStructureEntries.
func (b *Builder) projectStructure() string {
	fsys := os.DirFS(b.workDir)

	seen := make(map[string]bool)
	for _, pattern := range structurePatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if skippedPath(m) {
				continue
			}
			seen[m] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	truncated := false
	if len(paths) > b.maxStructureEntries {
		paths = paths[:b.maxStructureEntries]
		truncated = true
	}

	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(p)
		sb.WriteByte('\n')
	}
	if truncated {
		sb.WriteString("... (truncated)\n")
	}
	if sb.Len() == 0 {
		return "(empty project)"
	}
	return sb.String()
}

func skippedPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// fileContents renders each file as a labeled fenced block. Missing
// files (e.g. files the plan will create) are noted, not errors.
func (b *Builder) fileContents(paths []string) string {
	if len(paths) == 0 {
		return "(no files)"
	}

	var sb strings.Builder
	for _, p := range paths {
		full := filepath.Join(b.workDir, filepath.FromSlash(p))
		data, err := os.ReadFile(full)
		if err != nil {
			fmt.Fprintf(&sb, "### %s\n\n(does not exist yet)\n\n", p)
			continue
		}
		if len(data) > b.maxFileBytes {
			data = data[:b.maxFileBytes]
			b.logger.Debug("file content truncated for prompt", "path", p)
		}
		fmt.Fprintf(&sb, "### %s\n\n```\n%s\n```\n\n", p, string(data))
	}
	return sb.String()
}
