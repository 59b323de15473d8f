// package state persists the durable MultiSpecState and the per-spec
// handoff/guardrails/history assets under .ralph/.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iwebercodes/ralph/internal/specs"
)

const (
	RalphDir       = ".ralph"
	HandoffFile    = "handoff.md"
	GuardrailsFile = "guardrails.md"
	StatusFile     = "status"
	IterationFile  = "iteration"
	DoneCountFile  = "done_count"
	HistoryDirName = "history"
	HandoffDirName = "handoffs"
	StateFileName  = "state.json"

	StateVersion = 1
)

// SpecProgress tracks one spec's verification progress.
type SpecProgress struct {
	Path          string
	DoneCount     int
	LastStatus    string // "" means none
	LastHash      string // "" means none
	ModifiedFiles bool
}

// MultiSpecState is the single durable record persisted to state.json.
type MultiSpecState struct {
	Version      int
	Iteration    int
	Status       Status
	CurrentIndex int
	Specs        []SpecProgress
}

type specProgressJSON struct {
	Path          string `json:"path"`
	DoneCount     int    `json:"done_count"`
	LastStatus    string `json:"last_status,omitempty"`
	LastHash      string `json:"last_hash,omitempty"`
	ModifiedFiles bool   `json:"modified_files,omitempty"`
}

type stateJSON struct {
	Version      int                 `json:"version"`
	Iteration    int                 `json:"iteration"`
	Status       string              `json:"status"`
	CurrentIndex int                 `json:"current_index"`
	Specs        []specProgressJSON `json:"specs"`
}

func RalphDirPath(root string) string {
	return filepath.Join(root, RalphDir)
}

func StatePath(root string) string {
	return filepath.Join(RalphDirPath(root), StateFileName)
}

// ReadMultiState reads state.json, returning (nil, nil) if it doesn't exist
// or fails to parse as a JSON object.
func ReadMultiState(root string) (*MultiSpecState, error) {
	data, err := os.ReadFile(StatePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}

	st := &MultiSpecState{
		Version:      raw.Version,
		Iteration:    raw.Iteration,
		Status:       ParseStatus(raw.Status),
		CurrentIndex: raw.CurrentIndex,
	}
	for _, sp := range raw.Specs {
		st.Specs = append(st.Specs, SpecProgress{
			Path:          sp.Path,
			DoneCount:     sp.DoneCount,
			LastStatus:    sp.LastStatus,
			LastHash:      sp.LastHash,
			ModifiedFiles: sp.ModifiedFiles,
		})
	}
	return st, nil
}

// WriteMultiState atomically rewrites state.json with the full serialised state.
func WriteMultiState(root string, st *MultiSpecState) error {
	raw := stateJSON{
		Version:      st.Version,
		Iteration:    st.Iteration,
		Status:       string(st.Status),
		CurrentIndex: st.CurrentIndex,
	}
	for _, sp := range st.Specs {
		raw.Specs = append(raw.Specs, specProgressJSON{
			Path:          sp.Path,
			DoneCount:     sp.DoneCount,
			LastStatus:    sp.LastStatus,
			LastHash:      sp.LastHash,
			ModifiedFiles: sp.ModifiedFiles,
		})
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return writeFileAtomic(StatePath(root), data)
}

// writeFileAtomic writes to a temp file in the same directory then renames
// over the destination, so a crash never leaves a half-written state.json.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func readTextFile(path string, def string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return def
	}
	return strings.TrimSpace(string(data))
}

func writeTextFile(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func legacyInt(path string, def int) int {
	v, err := strconv.Atoi(readTextFile(path, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

// EnsureState is the restart-safety linchpin: given the currently-discovered
// spec paths, it loads or migrates state.json, syncs the spec list (preserving
// existing order, appending new entries, dropping removed ones), detects
// spec-text edits via content-hash comparison, and ensures on-disk per-spec
// handoff/history resources exist.
func EnsureState(root string, specPaths []string) (*MultiSpecState, error) {
	if err := os.MkdirAll(filepath.Join(RalphDirPath(root), HandoffDirName), 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(RalphDirPath(root), HistoryDirName), 0755); err != nil {
		return nil, err
	}

	existing, err := ReadMultiState(root)
	if err != nil {
		return nil, err
	}

	specSet := make(map[string]bool, len(specPaths))
	for _, p := range specPaths {
		specSet[p] = true
	}

	if existing == nil {
		legacyIteration := legacyInt(filepath.Join(RalphDirPath(root), IterationFile), 0)
		legacyDoneCount := legacyInt(filepath.Join(RalphDirPath(root), DoneCountFile), 0)
		legacyStatus := ParseStatus(readTextFile(filepath.Join(RalphDirPath(root), StatusFile), "IDLE"))

		var newSpecs []SpecProgress
		for _, p := range specPaths {
			newSpecs = append(newSpecs, SpecProgress{Path: p})
		}
		// The legacy migration assigns the single legacy done_count scalar
		// only to the first spec. In a multi-spec workspace this silently
		// discards per-spec counter information for everything else; that
		// is an accepted, reproduced quirk of the migration, not a bug.
		if len(newSpecs) > 0 {
			newSpecs[0].DoneCount = legacyDoneCount
		}

		st := &MultiSpecState{
			Version:      StateVersion,
			Iteration:    legacyIteration,
			Status:       legacyStatus,
			CurrentIndex: 0,
			Specs:        newSpecs,
		}
		if err := WriteMultiState(root, st); err != nil {
			return nil, err
		}
		if err := migrateLegacyAssets(root, specPaths); err != nil {
			return nil, err
		}
		if err := ensureSpecResources(root, specPaths); err != nil {
			return nil, err
		}
		return st, nil
	}

	existingPaths := make([]string, 0, len(existing.Specs))
	existingSet := make(map[string]bool, len(existing.Specs))
	existingMap := make(map[string]SpecProgress, len(existing.Specs))
	for _, sp := range existing.Specs {
		existingPaths = append(existingPaths, sp.Path)
		existingSet[sp.Path] = true
		existingMap[sp.Path] = sp
	}

	specSetChanged := !setsEqual(specSet, existingSet)

	var currentPath string
	if len(existing.Specs) > 0 && existing.CurrentIndex >= 0 && existing.CurrentIndex < len(existing.Specs) {
		currentPath = existing.Specs[existing.CurrentIndex].Path
	}

	var pathOrder []string
	for _, p := range existingPaths {
		if specSet[p] {
			pathOrder = append(pathOrder, p)
		}
	}
	for _, p := range specPaths {
		if !existingSet[p] {
			pathOrder = append(pathOrder, p)
		}
	}

	migratedHashes := false
	var newSpecs []SpecProgress
	for _, path := range pathOrder {
		prev, ok := existingMap[path]
		doneCount := 0
		lastStatus, lastHash := "", ""
		modifiedFiles := false
		if ok {
			doneCount = prev.DoneCount
			lastStatus = prev.LastStatus
			lastHash = prev.LastHash
			modifiedFiles = prev.ModifiedFiles
		}

		currentHash := specs.ContentHash(filepath.Join(root, path))
		specModified := lastHash != "" && currentHash != "" && currentHash != lastHash

		if ok && lastHash == "" && currentHash != "" {
			// First-ever observation of this spec's content hash. Back-filling
			// it here means the very first run on a pre-existing workspace
			// cannot tier-1-classify this spec as edited; intended.
			lastHash = currentHash
			migratedHashes = true
		}

		if specModified {
			doneCount = 0
			lastStatus = ""
			modifiedFiles = false
			// last_hash is deliberately NOT updated here: preserving the old
			// value keeps the tier-1 "edited" classification firing in the
			// Priority Scheduler until a DONE/non-DONE update replaces it.
		}

		newSpecs = append(newSpecs, SpecProgress{
			Path:          path,
			DoneCount:     doneCount,
			LastStatus:    lastStatus,
			LastHash:      lastHash,
			ModifiedFiles: modifiedFiles,
		})
	}

	currentIndex := 0
	for i, p := range pathOrder {
		if p == currentPath {
			currentIndex = i
			break
		}
	}

	updated := &MultiSpecState{
		Version:      existing.Version,
		Iteration:    existing.Iteration,
		Status:       existing.Status,
		CurrentIndex: currentIndex,
		Specs:        newSpecs,
	}

	if specSetChanged || currentIndex != existing.CurrentIndex || migratedHashes {
		if err := WriteMultiState(root, updated); err != nil {
			return nil, err
		}
	}

	if err := ensureSpecResources(root, specPaths); err != nil {
		return nil, err
	}

	return updated, nil
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func ensureSpecResources(root string, specPaths []string) error {
	legacyHandoff := HandoffPath(root, "")
	singlePrompt := len(specPaths) == 1 && specs.IsPromptPath(specPaths[0])
	_, legacyErr := os.Stat(legacyHandoff)
	skipPromptHandoff := singlePrompt && legacyErr == nil

	for _, p := range specPaths {
		if !(skipPromptHandoff && specs.IsPromptPath(p)) {
			hp := HandoffPath(root, p)
			if _, err := os.Stat(hp); os.IsNotExist(err) {
				if err := writeTextFile(hp, HandoffTemplate); err != nil {
					return err
				}
			}
		}
		if err := os.MkdirAll(HistoryDir(root, p), 0755); err != nil {
			return err
		}
	}
	return nil
}

func migrateLegacyAssets(root string, specPaths []string) error {
	legacyHandoff := filepath.Join(RalphDirPath(root), HandoffFile)

	var promptSpec string
	for _, p := range specPaths {
		if specs.IsPromptPath(p) {
			promptSpec = p
			break
		}
	}

	if promptSpec != "" {
		if _, err := os.Stat(legacyHandoff); err == nil {
			specHandoff := HandoffPath(root, promptSpec)
			if _, err := os.Stat(specHandoff); os.IsNotExist(err) {
				content := readTextFile(legacyHandoff, HandoffTemplate)
				if err := writeTextFile(specHandoff, content); err != nil {
					return err
				}
			}
		}
	}

	historyDir := filepath.Join(RalphDirPath(root), HistoryDirName)
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		return nil
	}
	var logFiles []string
	hasSubdirs := false
	for _, e := range entries {
		if e.IsDir() {
			hasSubdirs = true
			continue
		}
		if strings.HasSuffix(e.Name(), ".log") {
			logFiles = append(logFiles, e.Name())
		}
	}
	if len(logFiles) > 0 && !hasSubdirs && len(specPaths) == 1 {
		dest := HistoryDir(root, specPaths[0])
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
		for _, name := range logFiles {
			if err := os.Rename(filepath.Join(historyDir, name), filepath.Join(dest, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// HandoffPath returns the handoff path for a spec, or the legacy
// single-spec handoff path when specPath is "".
func HandoffPath(root string, specPath string) string {
	if specPath == "" {
		return filepath.Join(RalphDirPath(root), HandoffFile)
	}
	key := specs.ResourceKey(specPath)
	return filepath.Join(RalphDirPath(root), HandoffDirName, key+".md")
}

// ReadHandoff reads the per-spec handoff file, falling back once to the
// legacy workspace-wide handoff if the per-spec file is absent.
func ReadHandoff(root string, specPath string) string {
	path := HandoffPath(root, specPath)
	if specPath != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			legacy := HandoffPath(root, "")
			if _, err := os.Stat(legacy); err == nil {
				return readTextFile(legacy, HandoffTemplate)
			}
		}
	}
	return readTextFile(path, HandoffTemplate)
}

// WriteHandoff writes the per-spec (or legacy) handoff file.
func WriteHandoff(root string, specPath string, content string) error {
	return writeTextFile(HandoffPath(root, specPath), content)
}

// ReadGuardrails reads the shared guardrails file, defaulting to the canned template.
func ReadGuardrails(root string) string {
	return readTextFile(filepath.Join(RalphDirPath(root), GuardrailsFile), GuardrailsTemplate)
}

// WriteGuardrails writes the shared guardrails file.
func WriteGuardrails(root string, content string) error {
	return writeTextFile(filepath.Join(RalphDirPath(root), GuardrailsFile), content)
}

// HistoryDir returns the per-spec history directory.
func HistoryDir(root string, specPath string) string {
	base := filepath.Join(RalphDirPath(root), HistoryDirName)
	if specPath == "" {
		return base
	}
	return filepath.Join(base, specs.ResourceKey(specPath))
}

// HistoryFile returns the path for a specific iteration's log file,
// zero-padded to three digits.
func HistoryFile(root string, specPath string, iteration int) string {
	return filepath.Join(HistoryDir(root, specPath), fmt.Sprintf("%03d.log", iteration))
}

// WriteHistory writes a history log file for one iteration.
func WriteHistory(root string, specPath string, iteration int, content string) error {
	return writeTextFile(HistoryFile(root, specPath, iteration), content)
}

// ReadStatusFile reads .ralph/status applying the "missing → IDLE,
// unparseable → CONTINUE" split described in the status grammar.
func ReadStatusFile(root string) Status {
	data, err := os.ReadFile(filepath.Join(RalphDirPath(root), StatusFile))
	if err != nil {
		return StatusIdle
	}
	return ParseStatusOrIdle(string(data))
}

// WriteStatusFile writes .ralph/status.
func WriteStatusFile(root string, s Status) error {
	return writeTextFile(filepath.Join(RalphDirPath(root), StatusFile), string(s))
}

// WriteIterationMirror writes the legacy text mirror of the iteration count.
// Kept in sync with state.json's iteration field solely for human inspection;
// state.json remains the canonical source.
func WriteIterationMirror(root string, iteration int) error {
	return writeTextFile(filepath.Join(RalphDirPath(root), IterationFile), strconv.Itoa(iteration))
}

// WriteDoneCountMirror writes the legacy text mirror of the current spec's done_count.
func WriteDoneCountMirror(root string, count int) error {
	return writeTextFile(filepath.Join(RalphDirPath(root), DoneCountFile), strconv.Itoa(count))
}

// ReadPromptMD reads the root PROMPT.md, returning "" if absent or empty.
func ReadPromptMD(root string) string {
	return readTextFile(filepath.Join(root, specs.PromptFileName), "")
}

// AppendCrashNote appends an automatically-formatted crash annotation to a
// spec's handoff under a "## Notes" heading, creating the heading if absent.
func AppendCrashNote(root string, specPath string, summary string, errorSummary string, exitCode int) error {
	content := ReadHandoff(root, specPath)

	lines := []string{fmt.Sprintf("- Previous rotation crashed: %s", summary)}
	lines = append(lines, fmt.Sprintf("  - Exit code: %d", exitCode))
	if errorSummary != "" {
		lines = append(lines, fmt.Sprintf("  - Error: %s", errorSummary))
	}
	noteBlock := strings.Join(lines, "\n")

	content = strings.TrimRight(content, " \t\n")
	if strings.Contains(content, NotesHeading) {
		content = content + "\n" + noteBlock + "\n"
	} else {
		content = content + "\n\n" + NotesHeading + "\n" + noteBlock + "\n"
	}

	return WriteHandoff(root, specPath, content)
}
