package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// excludeRules splits exclude expressions into directory rules, which
// stop descent into matching directories, and tail rules (ending in $),
// which only skip the files directly inside matching directories.
type excludeRules struct {
	dirs  []*regexp.Regexp
	tails []*regexp.Regexp
}

func compileExclude(exprs []string) (*excludeRules, error) {
	r := &excludeRules{}
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", expr, err)
		}
		if strings.HasSuffix(expr, "$") {
			r.tails = append(r.tails, re)
		} else {
			r.dirs = append(r.dirs, re)
		}
	}
	return r, nil
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Files walks src and returns the files whose src-relative, slash-separated
// path matches test. Directory rules in exclude are matched against a
// directory's relative path; a matching directory is not entered. Tail rules
// are matched the same way but only hide the files directly inside the
// directory, its subdirectories are still walked.
func Files(fs afero.Fs, src string, test *regexp.Regexp, exclude []string) ([]string, error) {
	rules, err := compileExclude(exclude)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", src)
	}

	var files []string
	err = afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		if info.IsDir() {
			if rel != "" && anyMatch(rules.dirs, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			dir = ""
		}
		if anyMatch(rules.tails, dir) {
			return nil
		}
		if test == nil || test.MatchString(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", src, err)
	}
	sort.Strings(files)
	return files, nil
}
