// Package diff turns raw unified diffs into structured per-file changes.
package diff

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/revisor/internal/model"
)

// ParsedFileChange is one file's slice of a unified diff, with the
// metrics used for batching. Complexity is additions+deletions.
type ParsedFileChange struct {
	File       string           `json:"file"`
	OldPath    string           `json:"oldPath,omitempty"`
	ChangeType model.ChangeType `json:"changeType"`
	DiffText   string           `json:"diffText"`
	Additions  int              `json:"additions"`
	Deletions  int              `json:"deletions"`
	Extension  string           `json:"extension"`
	Complexity int              `json:"complexity"`
}

// Parse splits a raw unified diff into per-file changes. Files listed in
// fileList but absent from the diff text (e.g. permission-only changes)
// are returned with an empty DiffText. Ordering is first-seen order in
// the diff, then fileList order for diff-less files; the same inputs
// always produce the same output.
func Parse(raw string, fileList []model.GitFile) ([]ParsedFileChange, error) {
	segments := splitSegments(raw)

	changes := make([]ParsedFileChange, 0, len(segments)+len(fileList))
	seen := make(map[string]bool, len(segments))

	for _, seg := range segments {
		fc, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		seen[fc.File] = true
		changes = append(changes, fc)
	}

	for _, gf := range fileList {
		if seen[gf.Path] {
			continue
		}
		changes = append(changes, ParsedFileChange{
			File:       gf.Path,
			ChangeType: changeTypeFromStatus(gf.Status),
			DiffText:   "",
			Additions:  gf.LinesAdded,
			Deletions:  gf.LinesDeleted,
			Extension:  extensionOf(gf.Path),
			Complexity: gf.LinesAdded + gf.LinesDeleted,
		})
	}

	return changes, nil
}

// splitSegments cuts the raw diff at each "diff --git" boundary.
// Everything between two boundaries belongs to the preceding file.
func splitSegments(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var segments []string
	var current []string

	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			if len(current) > 0 {
				segments = append(segments, strings.Join(current, "\n"))
			}
			current = []string{line}
			continue
		}
		if len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, "\n"))
	}

	return segments
}

func parseSegment(segment string) (ParsedFileChange, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(segment))
	if err != nil {
		return ParsedFileChange{}, fmt.Errorf("parsing diff segment: %w", err)
	}
	if len(parsed) == 0 {
		return ParsedFileChange{}, fmt.Errorf("diff segment contains no file header")
	}

	f := parsed[0]
	fc := ParsedFileChange{DiffText: segment}

	switch {
	case f.IsNew:
		fc.ChangeType = model.ChangeAdded
		fc.File = f.NewName
	case f.IsDelete:
		fc.ChangeType = model.ChangeDeleted
		fc.File = f.OldName
	case f.IsRename:
		fc.ChangeType = model.ChangeRenamed
		fc.File = f.NewName
		fc.OldPath = f.OldName
	default:
		fc.ChangeType = model.ChangeModified
		fc.File = f.NewName
		if fc.File == "" {
			fc.File = f.OldName
		}
	}

	// Rename headers where both paths still differ without an explicit
	// rename marker are treated as renames too.
	if fc.ChangeType == model.ChangeModified && f.OldName != "" && f.NewName != "" && f.OldName != f.NewName {
		fc.ChangeType = model.ChangeRenamed
		fc.OldPath = f.OldName
	}

	for _, frag := range f.TextFragments {
		for _, line := range frag.Lines {
			switch line.Op {
			case gitdiff.OpAdd:
				fc.Additions++
			case gitdiff.OpDelete:
				fc.Deletions++
			}
		}
	}

	fc.Extension = extensionOf(fc.File)
	fc.Complexity = fc.Additions + fc.Deletions

	return fc, nil
}

func changeTypeFromStatus(status string) model.ChangeType {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "A", "ADDED":
		return model.ChangeAdded
	case "D", "DELETED":
		return model.ChangeDeleted
	case "R", "RENAMED":
		return model.ChangeRenamed
	default:
		return model.ChangeModified
	}
}

func extensionOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
