// package scheduler implements the Priority Scheduler: the five-tier spec
// ordering used to choose where to resume at startup, and the "focused
// execution" policy used to choose the next spec after each iteration.
package scheduler

import (
	"sort"

	"github.com/iwebercodes/ralph/internal/specs"
	"github.com/iwebercodes/ralph/internal/state"
)

// priorityKey returns (tier, within-tier sort key, done_count) for one spec
// given its recorded progress and current content hash. The done_count is
// non-zero only for tier 4, where it orders specs before the sort key.
func priorityKey(relPosix string, sp *state.SpecProgress, currentHash string) (int, string, int) {
	if sp == nil || sp.LastStatus == "" {
		return 0, relPosix, 0
	}
	edited := sp.LastHash != "" && currentHash != "" && sp.LastHash != currentHash
	if edited {
		return 1, relPosix, 0
	}
	if sp.LastStatus != string(state.StatusDone) {
		return 2, relPosix, 0
	}
	if sp.ModifiedFiles {
		return 3, relPosix, 0
	}
	return 4, relPosix, sp.DoneCount
}

// SortSpecs orders discovered specs by priority tier (ascending; tier 0 is
// highest priority). Within tier 4, DONE-clean specs are additionally
// ordered by done_count ascending for fair interleaving.
func SortSpecs(discovered []specs.Spec, st *state.MultiSpecState) []specs.Spec {
	progress := make(map[string]*state.SpecProgress, len(st.Specs))
	for i := range st.Specs {
		sp := st.Specs[i]
		progress[sp.Path] = &sp
	}

	sorted := append([]specs.Spec(nil), discovered...)
	sort.SliceStable(sorted, func(i, j int) bool {
		hi := specs.ContentHash(sorted[i].Path)
		hj := specs.ContentHash(sorted[j].Path)
		ti, ki, di := priorityKey(sorted[i].RelPosix, progress[sorted[i].RelPosix], hi)
		tj, kj, dj := priorityKey(sorted[j].RelPosix, progress[sorted[j].RelPosix], hj)
		if ti != tj {
			return ti < tj
		}
		if ti == 4 && di != dj {
			return di < dj
		}
		return ki < kj
	})
	return sorted
}

// StartupIndex picks the initial current_index: the first spec (in priority
// order) whose done_count < 3. Returns (0, false) if every spec is already
// complete.
func StartupIndex(sortedPaths []string, st *state.MultiSpecState) (int, bool) {
	byPath := make(map[string]int, len(st.Specs))
	for i, sp := range st.Specs {
		byPath[sp.Path] = i
	}
	for _, path := range sortedPaths {
		if idx, ok := byPath[path]; ok {
			if st.Specs[idx].DoneCount < 3 {
				return idx, true
			}
		}
	}
	return 0, false
}

// NextIndex implements "focused execution": it decides the spec index to run
// next, given the spec just executed, its outcome, the newly re-sorted
// priority order, and the set of spec paths that were not present before
// this iteration (which always interrupt focus).
func NextIndex(st *state.MultiSpecState, currentIndex int, lastSignal state.Status, lastHadChanges bool, sortedPaths []string, addedPaths map[string]bool) int {
	if len(st.Specs) == 0 {
		return currentIndex
	}

	byPath := make(map[string]int, len(st.Specs))
	for i, sp := range st.Specs {
		byPath[sp.Path] = i
	}

	if lastSignal == state.StatusDone && !lastHadChanges {
		currentPath := st.Specs[currentIndex].Path
		for _, path := range sortedPaths {
			if path == currentPath {
				continue
			}
			if idx, ok := byPath[path]; ok && st.Specs[idx].DoneCount < 3 {
				return idx
			}
		}
		if st.Specs[currentIndex].DoneCount < 3 {
			return currentIndex
		}
		return currentIndex
	}

	for _, path := range sortedPaths {
		if addedPaths[path] {
			if idx, ok := byPath[path]; ok {
				return idx
			}
		}
	}
	return currentIndex
}
