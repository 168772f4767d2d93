// Package release automates cutting a version: it validates the requested
// semver, rewrites the version constant, commits and tags.
package release

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"nasagram/pkg/logger"
)

// versionFile is the source file carrying the version constant
const versionFile = "cmd/nasagram/root.go"

// changelogFile gets a stub section per release
const changelogFile = "CHANGELOG.md"

var semverPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// Releaser cuts releases in the repository rooted at Dir
type Releaser struct {
	Dir    string
	Push   bool
	logger logger.Logger
	// run is injectable so tests don't need a git repository
	run func(dir string, args ...string) (string, error)
	// now stamps the changelog entry
	now func() time.Time
}

// New creates a Releaser for the repository at dir
func New(dir string, log logger.Logger) *Releaser {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Releaser{
		Dir:    dir,
		logger: log,
		run:    runGit,
		now:    time.Now,
	}
}

// NormalizeVersion validates a semver string and strips an optional leading v
func NormalizeVersion(version string) (string, error) {
	m := semverPattern.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return "", fmt.Errorf("invalid version %q, expected MAJOR.MINOR.PATCH", version)
	}
	return fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3]), nil
}

// Release cuts a release: clean-tree check, version rewrite, changelog stub,
// commit, tag, optional push.
func (r *Releaser) Release(version string) error {
	normalized, err := NormalizeVersion(version)
	if err != nil {
		return err
	}
	tag := "v" + normalized

	if err := r.requireCleanTree(); err != nil {
		return err
	}

	if err := r.rewriteVersion(normalized); err != nil {
		return err
	}
	if err := r.prependChangelog(normalized); err != nil {
		return err
	}

	steps := [][]string{
		{"add", versionFile, changelogFile},
		{"commit", "-m", fmt.Sprintf("Release %s", tag)},
		{"tag", tag},
	}
	if r.Push {
		steps = append(steps,
			[]string{"push"},
			[]string{"push", "origin", tag},
		)
	}

	for _, args := range steps {
		out, err := r.run(r.Dir, args...)
		if err != nil {
			r.logger.ErrorWithFields("git command failed", map[string]interface{}{
				"args":   strings.Join(args, " "),
				"output": out,
			})
			return fmt.Errorf("git %s failed: %w", args[0], err)
		}
	}

	r.logger.InfoWithFields("release cut", map[string]interface{}{
		"version": normalized,
		"tag":     tag,
		"pushed":  r.Push,
	})

	return nil
}

// requireCleanTree fails when the working tree has uncommitted changes
func (r *Releaser) requireCleanTree() error {
	out, err := r.run(r.Dir, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("git status failed: %w", err)
	}
	if strings.TrimSpace(out) != "" {
		return fmt.Errorf("working tree is not clean, commit or stash changes first")
	}
	return nil
}

var versionConstPattern = regexp.MustCompile(`(version\s*=\s*")[^"]*(")`)

// rewriteVersion updates the version constant in the root command source
func (r *Releaser) rewriteVersion(version string) error {
	path := filepath.Join(r.Dir, versionFile)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", versionFile, err)
	}

	if !versionConstPattern.Match(content) {
		return fmt.Errorf("no version constant found in %s", versionFile)
	}

	updated := versionConstPattern.ReplaceAll(content, []byte("${1}"+version+"${2}"))
	if err := os.WriteFile(path, updated, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", versionFile, err)
	}

	return nil
}

// prependChangelog adds a stub section for the release at the top of the
// changelog, creating the file when missing
func (r *Releaser) prependChangelog(version string) error {
	path := filepath.Join(r.Dir, changelogFile)

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", changelogFile, err)
	}

	header := fmt.Sprintf("## %s - %s\n\n- \n\n", version, r.now().Format("2006-01-02"))

	var content []byte
	if len(existing) == 0 {
		content = []byte("# Changelog\n\n" + header)
	} else {
		// Insert after the top-level title when there is one
		text := string(existing)
		if idx := strings.Index(text, "\n## "); idx >= 0 {
			content = []byte(text[:idx+1] + header + text[idx+1:])
		} else {
			content = []byte(text + "\n" + header)
		}
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", changelogFile, err)
	}

	return nil
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
