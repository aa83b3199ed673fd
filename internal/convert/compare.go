package convert

import (
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// EqualJSON reports whether a and b hold semantically equal JSON documents,
// ignoring key order and whitespace.
func EqualJSON(a, b []byte) bool {
	return jsonpatch.Equal(a, b)
}

// JSONDelta returns the RFC 7386 merge patch that turns want into got, for
// reporting NPF mismatches.
func JSONDelta(want, got []byte) (string, error) {
	p, err := jsonpatch.CreateMergePatch(want, got)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// DiffText renders the character-level difference between want and got.
// Deletions are shown as [-text-] and insertions as {+text+}; with color set
// they are rendered with ANSI colors instead.
func DiffText(want, got string, color bool) string {
	dmp := diffpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(want, got, false))
	if color {
		return dmp.DiffPrettyText(diffs)
	}

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		case diffpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffpatch.DiffEqual:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
