package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var statements = map[string]string{
	"QUpsertTask":                 QUpsertTask,
	"QPatchTask":                  QPatchTask,
	"QSelectTaskByID":             QSelectTaskByID,
	"QListTasksByOwner":           QListTasksByOwner,
	"QListPendingTasks":           QListPendingTasks,
	"QIncrementReconcileCounters": QIncrementReconcileCounters,
	"QSelectReconcileDay":         QSelectReconcileDay,
	"QSelectIntegrationToken":     QSelectIntegrationToken,
	"QUpsertIntegrationToken":     QUpsertIntegrationToken,
}

func TestStatementsCarryValidMarkers(t *testing.T) {
	seen := map[string]string{}
	for name, stmt := range statements {
		first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(stmt), "\n", 2)[0])
		if !markerPattern.MatchString(first) {
			t.Errorf("%s: first line %q is not a valid marker", name, first)
			continue
		}
		if prev, dup := seen[first]; dup {
			t.Errorf("%s: marker reused from %s", name, prev)
		}
		seen[first] = name
	}
}

// The list predicate must match GenerationTask.OwnedBy: once a task has an
// owner, a fingerprint alone must not surface it.
func TestListByOwnerMatchesOwnershipRule(t *testing.T) {
	if !strings.Contains(QListTasksByOwner, "owner_id is null and device_fingerprint = $1") {
		t.Fatalf("QListTasksByOwner matches fingerprints on owned tasks:\n%s", QListTasksByOwner)
	}
}

func TestStatementsSelectConsistentColumns(t *testing.T) {
	for _, name := range []string{"QUpsertTask", "QPatchTask", "QSelectTaskByID", "QListTasksByOwner", "QListPendingTasks"} {
		if !strings.Contains(statements[name], "task_id, prompt, mode,") {
			t.Errorf("%s does not return the shared task column list", name)
		}
	}
}
