package diff

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sprite-ai/revisor/internal/model"
)

// Collector gathers change sets from a local git repository. It is the
// git collaborator for the analysis pipeline; the pipeline itself never
// shells out.
type Collector struct {
	repoDir      string
	contextLines int
}

// NewCollector creates a Collector rooted at repoDir.
func NewCollector(repoDir string, contextLines int) *Collector {
	if contextLines <= 0 {
		contextLines = 3
	}
	return &Collector{repoDir: repoDir, contextLines: contextLines}
}

// WorkingDirectory returns the uncommitted changes against HEAD.
func (c *Collector) WorkingDirectory(ctx context.Context) (*model.GitChanges, error) {
	return c.collect(ctx, "HEAD")
}

// BranchComparison returns the changes of compare relative to base using
// three-dot range semantics. Empty compare means the current branch.
func (c *Collector) BranchComparison(ctx context.Context, base, compare string) (*model.GitChanges, error) {
	if compare == "" {
		compare = "HEAD"
	}
	return c.collect(ctx, fmt.Sprintf("%s...%s", base, compare))
}

// CurrentBranch returns the checked-out branch name.
func (c *Collector) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (c *Collector) collect(ctx context.Context, rangeSpec string) (*model.GitChanges, error) {
	raw, err := c.git(ctx, "diff", fmt.Sprintf("-U%d", c.contextLines), rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("git diff: %w", err)
	}

	numstat, err := c.git(ctx, "diff", "--numstat", rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("git diff --numstat: %w", err)
	}
	status, err := c.git(ctx, "diff", "--name-status", rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("git diff --name-status: %w", err)
	}

	changes := &model.GitChanges{Diff: raw}
	statuses := parseNameStatus(status)

	for _, line := range strings.Split(strings.TrimSpace(numstat), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		// "-" marks binary files in numstat output.
		added, _ := strconv.Atoi(fields[0])
		deleted, _ := strconv.Atoi(fields[1])
		path := fields[2]

		gf := model.GitFile{
			Path:         path,
			Status:       statuses[path],
			LinesAdded:   added,
			LinesDeleted: deleted,
		}
		changes.Files = append(changes.Files, gf)
		changes.Summary.Insertions += added
		changes.Summary.Deletions += deleted
	}
	changes.Summary.FilesChanged = len(changes.Files)

	return changes, nil
}

// parseNameStatus maps paths to single-letter statuses. Renames report
// "old\tnew"; the new path carries the status.
func parseNameStatus(out string) map[string]string {
	statuses := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := strings.ToUpper(fields[0][:1])
		path := fields[len(fields)-1]
		statuses[path] = code
	}
	return statuses
}

func (c *Collector) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RepoRoot resolves the top-level directory of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository (or git not installed): %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
