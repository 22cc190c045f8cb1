// Package digest produces the scheduled summary of open work, using a
// content fingerprint over the tracker snapshot to avoid regenerating
// identical summaries.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/herdworks/yakbot/internal/linear"
)

// normalizedIssue is the canonical projection of an issue for change
// detection. Only fields that make a summary stale are included;
// description text, for one, is deliberately absent.
type normalizedIssue struct {
	Identifier string   `json:"identifier"`
	Status     string   `json:"status"`
	Priority   int      `json:"priority"`
	Assignee   string   `json:"assignee"`
	Project    string   `json:"project"`
	Labels     []string `json:"labels"`
	DueDate    string   `json:"due_date"`
}

// Fingerprint computes a deterministic hash over the snapshot's issue
// state. Issues are normalized, their labels sorted, and the list
// sorted by identifier before hashing, so the result depends only on
// snapshot semantics, never on fetch order.
func Fingerprint(snap *linear.Snapshot) string {
	normalized := make([]normalizedIssue, 0, len(snap.Issues))
	for _, iss := range snap.Issues {
		n := normalizedIssue{
			Identifier: iss.Identifier,
			Priority:   iss.Priority,
			DueDate:    iss.DueDate,
		}
		if iss.State != nil {
			n.Status = iss.State.Name
		}
		if iss.Assignee != nil {
			n.Assignee = iss.Assignee.Name
		}
		if iss.Project != nil {
			n.Project = iss.Project.Name
		}
		n.Labels = make([]string, len(iss.Labels))
		for i, l := range iss.Labels {
			n.Labels[i] = l.Name
		}
		sort.Strings(n.Labels)
		normalized = append(normalized, n)
	}

	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Identifier < normalized[j].Identifier
	})

	// Struct field order is fixed, so marshaling is canonical.
	data, err := json.Marshal(normalized)
	if err != nil {
		// Only unmarshalable types can fail here, and there are none.
		panic("digest: marshal normalized issues: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
