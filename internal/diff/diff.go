package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies a hunk body line.
type LineKind int

const (
	// Context is an unchanged line (leading space, or an empty line).
	Context LineKind = iota
	// Added is a line introduced by the patch (leading '+').
	Added
	// Removed is a line deleted by the patch (leading '-').
	Removed
	// Meta is parser metadata such as "\ No newline at end of file".
	// Meta lines are preserved verbatim and excluded from all counts.
	Meta
)

// Line is one body line of a hunk. Raw includes the prefix character.
type Line struct {
	Kind LineKind
	Raw  string
}

// Hunk is one contiguous change region within a file patch.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FilePatch is the parsed diff for a single file.
type FilePatch struct {
	// Preamble holds any lines before the --- header ("diff --git", "index",
	// mode lines), preserved verbatim.
	Preamble []string
	// SourceLine and TargetLine are the raw "--- " and "+++ " header lines.
	SourceLine string
	TargetLine string
	Hunks      []Hunk
}

// SourcePath returns the old-side path with any a/ prefix stripped.
func (f *FilePatch) SourcePath() string {
	return stripHeaderPath(f.SourceLine, "--- ")
}

// TargetPath returns the new-side path with any b/ prefix stripped.
func (f *FilePatch) TargetPath() string {
	return stripHeaderPath(f.TargetLine, "+++ ")
}

// IsDeletion reports whether the patch deletes the file (target is the null
// device).
func (f *FilePatch) IsDeletion() bool {
	raw := strings.TrimPrefix(f.TargetLine, "+++ ")
	return headerPathOnly(raw) == "/dev/null"
}

// Path returns the effective file path (target side unless the file is being
// deleted, in which case the source side).
func (f *FilePatch) Path() string {
	if f.IsDeletion() {
		return f.SourcePath()
	}
	return f.TargetPath()
}

// PatchSet is a fully parsed unified diff.
type PatchSet struct {
	Files []FilePatch
	// trailingNewline records whether the input ended with a newline, so
	// Render can reproduce the input byte-for-byte.
	trailingNewline bool
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse parses raw unified-diff text into a PatchSet. The input may be the
// concatenation of several per-file diffs. Parse is strict about structure
// (headers and hunk framing) but tolerant about body content, since the text
// typically originates from an unreliable generator.
func Parse(text string) (*PatchSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty diff")
	}

	lines := strings.Split(text, "\n")
	ps := &PatchSet{}
	if lines[len(lines)-1] == "" {
		ps.trailingNewline = true
		lines = lines[:len(lines)-1]
	}

	var preamble []string
	i := 0
	for i < len(lines) {
		line := lines[i]

		if !strings.HasPrefix(line, "--- ") {
			// Anything before a file header is preamble for the next file.
			preamble = append(preamble, line)
			i++
			continue
		}

		fp := FilePatch{Preamble: preamble, SourceLine: line}
		preamble = nil
		i++

		if i >= len(lines) || !strings.HasPrefix(lines[i], "+++ ") {
			return nil, fmt.Errorf("file header %q not followed by +++ line", line)
		}
		fp.TargetLine = lines[i]
		i++

		for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
			m := hunkHeaderRe.FindStringSubmatch(lines[i])
			if m == nil {
				return nil, fmt.Errorf("malformed hunk header %q", lines[i])
			}
			h := Hunk{
				OldStart: atoiDefault(m[1], 0),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewCount: atoiDefault(m[4], 1),
			}
			i++
			for i < len(lines) {
				l := lines[i]
				if strings.HasPrefix(l, "@@") || strings.HasPrefix(l, "diff --git") {
					break
				}
				// A "--- " line is only a file header when a "+++ " line
				// follows; a removed body line may also start that way.
				if strings.HasPrefix(l, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ") {
					break
				}
				h.Lines = append(h.Lines, classify(l))
				i++
			}
			fp.Hunks = append(fp.Hunks, h)
		}

		if len(fp.Hunks) == 0 {
			return nil, fmt.Errorf("file %q has no hunks", fp.Path())
		}
		ps.Files = append(ps.Files, fp)
	}

	if len(ps.Files) == 0 {
		return nil, fmt.Errorf("no file headers found")
	}
	return ps, nil
}

// classify determines the kind of a hunk body line from its prefix.
func classify(raw string) Line {
	switch {
	case strings.HasPrefix(raw, "+"):
		return Line{Kind: Added, Raw: raw}
	case strings.HasPrefix(raw, "-"):
		return Line{Kind: Removed, Raw: raw}
	case strings.HasPrefix(raw, `\`):
		return Line{Kind: Meta, Raw: raw}
	default:
		// Leading-space context, blank separator lines, and any stray text
		// all count as context.
		return Line{Kind: Context, Raw: raw}
	}
}

// Render reassembles the patch set into unified-diff text.
func (ps *PatchSet) Render() string {
	var b strings.Builder
	for fi := range ps.Files {
		f := &ps.Files[fi]
		for _, l := range f.Preamble {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteString(f.SourceLine)
		b.WriteByte('\n')
		b.WriteString(f.TargetLine)
		b.WriteByte('\n')
		for hi := range f.Hunks {
			h := &f.Hunks[hi]
			fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
			for _, l := range h.Lines {
				b.WriteString(l.Raw)
				b.WriteByte('\n')
			}
		}
	}
	out := b.String()
	if !ps.trailingNewline {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}

// Content returns the line's text without its prefix character. Meta lines
// return their raw text.
func (l Line) Content() string {
	switch l.Kind {
	case Added, Removed:
		return l.Raw[1:]
	case Context:
		return strings.TrimPrefix(l.Raw, " ")
	default:
		return l.Raw
	}
}

func stripHeaderPath(headerLine, prefix string) string {
	p := headerPathOnly(strings.TrimPrefix(headerLine, prefix))
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// headerPathOnly drops anything after a tab in a file header (git appends
// timestamps and mode info after a tab in some formats).
func headerPathOnly(s string) string {
	if idx := strings.IndexByte(s, '\t'); idx >= 0 {
		return s[:idx]
	}
	return strings.TrimSpace(s)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
