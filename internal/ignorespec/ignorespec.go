// package ignorespec supplies the default path-matcher the Snapshot component
// consumes to exclude files from a workspace snapshot.
package ignorespec

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// IgnoreFileName is an optional gitignore-style pattern file at the workspace root.
const IgnoreFileName = ".ralphignore"

// defaultPatterns are always excluded regardless of .ralphignore contents.
var defaultPatterns = []string{
	".ralph/**",
	".git/**",
}

// Matcher decides whether a workspace-relative, forward-slash path should be
// excluded from a snapshot.
type Matcher struct {
	patterns []string
}

// Load builds a Matcher from the workspace's .ralphignore file, if any, plus
// the always-on defaults.
func Load(root string) (*Matcher, error) {
	patterns := append([]string{}, defaultPatterns...)

	f, err := os.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{patterns: patterns}, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Matcher{patterns: patterns}, nil
}

// Match reports whether relPosix (a forward-slash, workspace-relative path)
// is excluded.
func (m *Matcher) Match(relPosix string) bool {
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, relPosix); ok {
			return true
		}
		// also match the pattern against any path segment, so a bare
		// directory name like "node_modules" excludes it anywhere in the tree.
		if ok, _ := doublestar.Match("**/"+p, relPosix); ok {
			return true
		}
	}
	return false
}
