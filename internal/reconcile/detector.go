package reconcile

import (
	"sort"

	"github.com/p-blackswan/projectsync/internal/classify"
	"github.com/p-blackswan/projectsync/internal/scan"
)

// Change is one project-level difference between two scans.
type Change struct {
	Kind       classify.ChangeKind
	Descriptor scan.Descriptor
}

// Detect diffs the current scan against the previous snapshot. Unchanged
// fingerprints produce nothing. Each path appears at most once; output is
// sorted by path with deletions last.
func Detect(current, previous map[string]scan.Descriptor) []Change {
	var changes []Change

	for _, path := range sortedKeys(current) {
		d := current[path]
		prev, seen := previous[path]
		switch {
		case !seen:
			changes = append(changes, Change{Kind: classify.NewProject, Descriptor: d})
		case prev.Fingerprint != d.Fingerprint:
			changes = append(changes, Change{Kind: classify.UpdatedProject, Descriptor: d})
		}
	}

	for _, path := range sortedKeys(previous) {
		if _, ok := current[path]; !ok {
			changes = append(changes, Change{Kind: classify.DeletedProject, Descriptor: previous[path]})
		}
	}
	return changes
}

func sortedKeys(m map[string]scan.Descriptor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
