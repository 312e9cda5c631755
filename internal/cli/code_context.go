package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
	"github.com/nwscript-tools/nwsoutline/internal/source"
)

const (
	maxDocLines  = 30
	maxDeclLines = 20
	maxCodeChars = 32 * 1024
)

// codeWindow is an inclusive, 1-based line range.
type codeWindow struct {
	startLine int
	endLine   int
}

// fetchDeclarationsCode renders each declaration together with the comment
// block directly above it, grouped by file. Files are decoded the same way
// the extractor decodes them, so wide sources render as text. Unreadable
// files are skipped.
func fetchDeclarationsCode(repoRoot string, x *nwscript.Extractor, defs []indexer.Definition) string {
	var order []string
	byPath := map[string][]int{}
	for _, d := range defs {
		if _, ok := byPath[d.Location.Path]; !ok {
			order = append(order, d.Location.Path)
		}
		byPath[d.Location.Path] = append(byPath[d.Location.Path], d.Location.Line)
	}

	var sb strings.Builder
	for _, rel := range order {
		abs := safeJoinPath(repoRoot, rel)
		if abs == "" {
			continue
		}
		buf, err := source.ReadFile(abs)
		if err != nil {
			continue
		}
		lines := splitLines(x.Text(buf))

		var windows []codeWindow
		for _, line := range byPath[rel] {
			if line >= 1 && line <= len(lines) {
				windows = append(windows, declarationWindow(lines, line))
			}
		}

		fmt.Fprintf(&sb, "// %s\n", filepath.ToSlash(rel))
		for _, w := range mergeWindows(windows) {
			sb.WriteString(numberedLines(lines, w))
			if sb.Len() > maxCodeChars {
				sb.WriteString("... (truncated)\n")
				return sb.String()
			}
		}
	}
	return sb.String()
}

// declarationWindow spans the doc comment above line through the line that
// terminates the declaration.
func declarationWindow(lines []string, line int) codeWindow {
	start := line
	for i := line - 1; i >= 1 && line-i <= maxDocLines; {
		t := strings.TrimSpace(lines[i-1])
		switch {
		case strings.HasPrefix(t, "//"):
			start = i
			i--
			continue
		case strings.HasSuffix(t, "*/"):
			j := i
			for j >= 1 && !strings.Contains(lines[j-1], "/*") {
				j--
			}
			if j < 1 {
				return codeWindow{startLine: start, endLine: declarationEnd(lines, line)}
			}
			start = j
			i = j - 1
			continue
		}
		break
	}
	return codeWindow{startLine: start, endLine: declarationEnd(lines, line)}
}

func declarationEnd(lines []string, line int) int {
	end := line
	for end < len(lines) && end-line < maxDeclLines && !strings.Contains(lines[end-1], ";") {
		end++
	}
	return end
}

// mergeWindows merges overlapping or adjacent windows (no gap)
func mergeWindows(windows []codeWindow) []codeWindow {
	if len(windows) == 0 {
		return nil
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].startLine < windows[j].startLine
	})

	merged := []codeWindow{windows[0]}
	for i := 1; i < len(windows); i++ {
		last := &merged[len(merged)-1]
		curr := windows[i]
		if curr.startLine <= last.endLine+1 {
			if curr.endLine > last.endLine {
				last.endLine = curr.endLine
			}
		} else {
			merged = append(merged, curr)
		}
	}
	return merged
}

// safeJoinPath joins repoRoot and relPath, returning "" when the result
// would escape repoRoot, either lexically or once symbolic links are
// resolved. Paths that do not exist yet are judged lexically.
func safeJoinPath(repoRoot, relPath string) string {
	cleanRel := filepath.Clean(relPath)
	if filepath.IsAbs(cleanRel) || cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return ""
	}

	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return ""
	}
	absPath := filepath.Join(absRoot, cleanRel)
	if !within(absRoot, absPath) {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return absPath
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil || !within(realRoot, resolved) {
		return ""
	}
	return absPath
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// splitLines splits canonical text on \n, \r\n or a lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// numberedLines renders w with right-aligned 1-based line numbers.
func numberedLines(lines []string, w codeWindow) string {
	var sb strings.Builder
	for n := max(w.startLine, 1); n <= w.endLine && n <= len(lines); n++ {
		fmt.Fprintf(&sb, "%6d| %s\n", n, lines[n-1])
	}
	return sb.String()
}
