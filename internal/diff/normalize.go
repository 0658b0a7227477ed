package diff

import "strings"

// Normalize parses raw diff text, cleans every hunk body, recomputes hunk
// headers from the cleaned bodies, and renders the result. Normalization is a
// fixed point: normalizing already-normalized output reproduces it
// byte-for-byte.
func Normalize(text string) (string, error) {
	ps, err := Parse(text)
	if err != nil {
		return "", err
	}
	ps.Clean()
	return ps.Render(), nil
}

// Clean rewrites every hunk in place: trailing whitespace is stripped from
// added and removed lines (indentation is untouched), and headers are
// recomputed from the cleaned bodies.
func (ps *PatchSet) Clean() {
	for fi := range ps.Files {
		f := &ps.Files[fi]
		for hi := range f.Hunks {
			cleanHunk(&f.Hunks[hi])
		}
	}
}

// cleanHunk normalizes one hunk's body lines and recomputes its header
// counts. A changed line whose content is only trailing whitespace collapses
// to an empty line of the same kind rather than being dropped, so the change
// is still visible in the patch. A zero count on either side is clamped to
// (start=1, count=1) to keep the header syntactically valid.
func cleanHunk(h *Hunk) {
	var added, removed, context int

	for i := range h.Lines {
		l := &h.Lines[i]
		switch l.Kind {
		case Added, Removed:
			prefix := l.Raw[:1]
			l.Raw = prefix + strings.TrimRight(l.Raw[1:], " \t")
			if l.Kind == Added {
				added++
			} else {
				removed++
			}
		case Context:
			if l.Raw == " " {
				l.Raw = ""
			} else {
				l.Raw = strings.TrimRight(l.Raw, " \t")
			}
			context++
		case Meta:
			// preserved verbatim, not counted
		}
	}

	h.OldCount = removed + context
	h.NewCount = added + context
	if h.OldCount == 0 {
		h.OldStart = 1
		h.OldCount = 1
	}
	if h.NewCount == 0 {
		h.NewStart = 1
		h.NewCount = 1
	}
}

// Extract pulls unified-diff text out of a generated response. It prefers a
// ```diff fenced block, then falls back to scanning for the first diff
// header. Returns the response unchanged when nothing resembling a diff is
// found.
func Extract(response string) string {
	if start := strings.Index(response, "```diff\n"); start >= 0 {
		rest := response[start+len("```diff\n"):]
		if end := strings.Index(rest, "\n```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "--- ") || strings.HasPrefix(trimmed, "diff --git") {
		return trimmed
	}

	var diffLines []string
	inDiff := false
	for _, line := range strings.Split(response, "\n") {
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "diff --git") {
			inDiff = true
		}
		if inDiff {
			diffLines = append(diffLines, line)
		}
	}
	if len(diffLines) > 0 {
		return strings.TrimSpace(strings.Join(diffLines, "\n"))
	}
	return trimmed
}
