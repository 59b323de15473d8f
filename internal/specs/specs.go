// package specs discovers spec files and derives their storage identities.
package specs

import (
	"crypto/sha1"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PromptFileName is the optional root-level spec.
const PromptFileName = "PROMPT.md"

// specRoots are the two well-known directories searched recursively for *.spec.md.
var specRoots = []string{
	filepath.Join(".ralph", "specs"),
	"specs",
}

// Spec is a discovered spec file.
type Spec struct {
	Path     string // absolute filesystem path
	RelPosix string // path relative to the workspace root, forward-slash separated
	IsPrompt bool
}

// Discover walks the workspace root and returns every spec file, sorted
// deterministically: PROMPT.md first, then alphabetically by RelPosix.
func Discover(root string) ([]Spec, error) {
	var found []Spec

	promptPath := filepath.Join(root, PromptFileName)
	if st, err := os.Stat(promptPath); err == nil && !st.IsDir() {
		found = append(found, Spec{
			Path:     promptPath,
			RelPosix: toPosix(PromptFileName),
			IsPrompt: true,
		})
	}

	for _, sr := range specRoots {
		base := filepath.Join(root, sr)
		if st, err := os.Stat(base); err != nil || !st.IsDir() {
			continue
		}
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".spec.md") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			found = append(found, Spec{
				Path:     path,
				RelPosix: toPosix(rel),
				IsPrompt: false,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		ki, si := sortKey(found[i])
		kj, sj := sortKey(found[j])
		if ki != kj {
			return ki < kj
		}
		return si < sj
	})

	return found, nil
}

func sortKey(s Spec) (int, string) {
	if s.IsPrompt {
		return 0, "000-prompt.spec.md"
	}
	return 1, s.RelPosix
}

func toPosix(p string) string {
	return filepath.ToSlash(p)
}

// Hash returns the 6-hex-character path hash used to build per-spec storage keys.
func Hash(relPosix string) string {
	normalized := toPosix(relPosix)
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:6]
}

// ContentHash returns the full sha1 hex digest of the spec's content, or ""
// if the file is missing.
func ContentHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// IsPromptPath reports whether relPosix names the root PROMPT.md, case-insensitively.
func IsPromptPath(relPosix string) bool {
	return strings.ToLower(toPosix(relPosix)) == "prompt.md"
}

// BaseName returns the storage base name for a spec path (without ".md").
//
// Note: for non-prompt specs this strips only a trailing ".md", not ".spec.md" —
// e.g. "auth.spec.md" becomes "auth.spec". That quirk is intentional: it mirrors
// the reference implementation's storage-key derivation and changing it would
// invalidate existing on-disk per-spec directories.
func BaseName(relPosix string) string {
	if IsPromptPath(relPosix) {
		return "000-prompt"
	}
	name := filepath.Base(toPosix(relPosix))
	name = strings.TrimSuffix(name, ".md")
	return name
}

// ResourceKey returns the "{basename}-{hash}" key used for per-spec storage paths.
func ResourceKey(relPosix string) string {
	return BaseName(relPosix) + "-" + Hash(relPosix)
}

// ReadContent returns the trimmed spec text, or "" if empty or missing.
func ReadContent(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
