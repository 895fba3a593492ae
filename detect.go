package hancho

import (
	"os"
	"path/filepath"
)

// findRepoRoot walks upward from dir looking for a ".git" entry,
// returning the first directory that has one, or dir itself if none
// is found. It anchors root_dir, build_root and task_dir defaults.
func findRepoRoot(dir string) string {
	cur := dir
	for {
		if info, err := os.Stat(filepath.Join(cur, ".git")); err == nil && info != nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// repoRoot returns the detected repository root from the current
// working directory, falling back to "." on any error.
func repoRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return findRepoRoot(wd)
}
