package ingest

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultExcludeFolders and defaultExcludeFiles always apply on top of
// whatever a project's own exclude rules name.
var defaultExcludeFolders = []string{"node_modules", ".git", "dist", "build", "coverage", "archive", "deprecated", "i18n"}
var defaultExcludeFiles = []string{"CHANGELOG.md", "LICENSE.md", "LICENSE", "CODE_OF_CONDUCT.md", "CONTRIBUTING.md", "SECURITY.md"}

var rootReadmeNames = []string{"README.md", "README.rst", "README.txt", "readme.md"}
var rootAPINames = []string{"API.md", "api.md", "REFERENCE.md"}
var standardDirs = []string{"docs", "examples", "content"}

// excludeRuleSet compiles a project's exclude_folders list into the
// three dialects the parser supports: bare name (match anywhere in the
// tree), "./name" (match only at root), and "a/b" (exact path or prefix
// thereof).
type excludeRuleSet struct {
	anywhere map[string]bool
	rootOnly map[string]bool
	prefixes []string
}

func newExcludeRuleSet(folders []string) excludeRuleSet {
	rs := excludeRuleSet{anywhere: map[string]bool{}, rootOnly: map[string]bool{}}

	claimed := map[string]bool{}
	addRule := func(f string) {
		f = strings.TrimSuffix(f, "/")
		switch {
		case strings.HasPrefix(f, "./"):
			rs.rootOnly[strings.TrimPrefix(f, "./")] = true
		case strings.Contains(f, "/"):
			rs.prefixes = append(rs.prefixes, f)
		default:
			rs.anywhere[f] = true
		}
	}

	// A user rule claims its folder name under whichever dialect the
	// user wrote it in; a default rule for that same name is dropped
	// rather than unioned in, so a root-only or path-scoped user rule
	// (e.g. "./dist") isn't silently widened back into an anywhere-match
	// by the matching default (e.g. the default "dist" entry).
	for _, f := range folders {
		addRule(f)
		claimed[nameOf(f)] = true
	}
	for _, f := range defaultExcludeFolders {
		if claimed[nameOf(f)] {
			continue
		}
		addRule(f)
	}
	return rs
}

// nameOf returns the folder name a rule targets regardless of dialect:
// "node_modules" -> "node_modules", "./dist" -> "dist",
// "app-sdk/v2.3" -> "v2.3".
func nameOf(f string) string {
	f = strings.TrimSuffix(f, "/")
	f = strings.TrimPrefix(f, "./")
	return path.Base(f)
}

// excludes reports whether relDir (POSIX, no leading/trailing slash)
// should be skipped under any of the three dialects.
func (rs excludeRuleSet) excludes(relDir string) bool {
	if relDir == "" {
		return false
	}
	base := path.Base(relDir)
	if rs.anywhere[base] {
		return true
	}
	if rs.rootOnly[relDir] {
		return true
	}
	for _, p := range rs.prefixes {
		if relDir == p || strings.HasPrefix(relDir, p+"/") {
			return true
		}
	}
	return false
}

// excludeFileSet is the flat list of excluded filenames, tested against
// the base name only.
type excludeFileSet map[string]bool

func newExcludeFileSet(files []string) excludeFileSet {
	set := excludeFileSet{}
	for _, f := range append(append([]string{}, defaultExcludeFiles...), files...) {
		set[f] = true
	}
	return set
}

// Walk discovers candidate markdown-like files under root, applying the
// project's folder selection and exclude rules. Paths returned are
// relative to root, using "/" separators regardless of host OS.
func Walk(root string, cfg *ProjectConfig) ([]string, []string) {
	var warnings []string
	var folders []string
	if cfg != nil && len(cfg.Folders) > 0 {
		folders = cfg.Folders
	} else {
		folders = standardDirs
	}

	excludeFolders := excludeRuleSet{anywhere: map[string]bool{}, rootOnly: map[string]bool{}}
	excludeFiles := excludeFileSet{}
	if cfg != nil {
		excludeFolders = newExcludeRuleSet(cfg.ExcludeFolders)
		excludeFiles = newExcludeFileSet(cfg.ExcludeFiles)
	} else {
		excludeFolders = newExcludeRuleSet(nil)
		excludeFiles = newExcludeFileSet(nil)
	}

	var paths []string
	seen := map[string]bool{}

	addIfEligible := func(relPath string) {
		relPath = filepath.ToSlash(relPath)
		if seen[relPath] {
			return
		}
		if !isMarkdownLike(relPath) {
			return
		}
		if excludeFiles[path.Base(relPath)] {
			return
		}
		seen[relPath] = true
		paths = append(paths, relPath)
	}

	for _, name := range rootReadmeNames {
		if fileExists(filepath.Join(root, name)) {
			addIfEligible(name)
		}
	}
	for _, name := range rootAPINames {
		if fileExists(filepath.Join(root, name)) {
			addIfEligible(name)
		}
	}

	for _, dir := range folders {
		dirAbs := filepath.Join(root, filepath.FromSlash(dir))
		if !dirExists(dirAbs) {
			continue
		}
		err := filepath.WalkDir(dirAbs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				warnings = append(warnings, "walk error at "+p+": "+err.Error())
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				base := path.Base(rel)
				if base != "." && strings.HasPrefix(base, ".") {
					return fs.SkipDir
				}
				if excludeFolders.excludes(rel) {
					return fs.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(path.Base(rel), ".") {
				return nil
			}
			addIfEligible(rel)
			return nil
		})
		if err != nil {
			warnings = append(warnings, "walk error under "+dir+": "+err.Error())
		}
	}

	if len(paths) == 0 {
		warnings = append(warnings, "no eligible files found under "+root)
	}

	return paths, warnings
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
