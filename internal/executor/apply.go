package executor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/forgelight/foreman/internal/extract"
	"github.com/forgelight/foreman/internal/result"
	"github.com/forgelight/foreman/internal/util"
)

// applyChanges writes extracted file changes under the work directory and
// returns the records for the Implementation result. Creates and modifies
// are written as-is; deletes are skipped and logged, they are not
// supported. Paths escaping the work directory are skipped.
func (e *Executor) applyChanges(changes []extract.FileChange) []result.FileChange {
	applied := make([]result.FileChange, 0, len(changes))
	for _, ch := range changes {
		rec := result.FileChange{
			Path:    ch.Path,
			Action:  ch.Action,
			Summary: ch.Summary,
		}

		if ch.Action == result.ChangeDelete {
			e.logger.Info("skipping delete, not supported", "path", ch.Path)
			applied = append(applied, rec)
			continue
		}

		target, ok := e.resolvePath(ch.Path)
		if !ok {
			e.logger.Warn("skipping change outside work directory", "path", ch.Path)
			continue
		}

		var before int
		if prev, err := os.ReadFile(target); err == nil {
			before = countLines(string(prev))
		}

		if err := util.AtomicWriteFile(target, []byte(ch.Content), 0o644); err != nil {
			e.logger.Error("write file failed", "path", ch.Path, "error", err)
			continue
		}

		after := countLines(ch.Content)
		if after > before {
			rec.LinesAdded = after - before
		} else {
			rec.LinesRemoved = before - after
		}
		e.logger.Debug("applied change", "path", ch.Path, "action", ch.Action)
		applied = append(applied, rec)
	}
	return applied
}

// resolvePath joins a change path onto the work directory, rejecting
// absolute paths and traversal out of it.
func (e *Executor) resolvePath(path string) (string, bool) {
	if path == "" || filepath.IsAbs(path) {
		return "", false
	}
	target := filepath.Join(e.workDir, filepath.FromSlash(path))
	rel, err := filepath.Rel(e.workDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
