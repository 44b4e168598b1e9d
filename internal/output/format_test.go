package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"phab/internal/service"
)

func point(n uint64) *uint64 { return &n }

func sampleForest() []service.TaskFamily {
	return []service.TaskFamily{
		{
			ParentTask: service.Task{ID: "1", Status: "open", Name: "Root", Board: &service.Board{Name: "Doing"}, Point: point(5)},
			Children: []service.TaskFamily{
				{
					ParentTask: service.Task{ID: "2", Status: "resolved", Name: "Child"},
					Children: []service.TaskFamily{
						{ParentTask: service.Task{ID: "3", Status: "open", Name: "Grandchild", Point: point(1)}},
					},
				},
				{
					ParentTask: service.Task{ID: "4", Status: "invalid", Name: "Dropped"},
					Children: []service.TaskFamily{
						{ParentTask: service.Task{ID: "5", Status: "open", Name: "Under dropped"}},
					},
				},
			},
		},
	}
}

func TestFormatTaskFamilies(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskFamilies(&buf, sampleForest(), 0)

	expected := "[T1 open - Doing point: 5] Root\n" +
		"  [T2 resolved - NoBoard point: 0] Child\n" +
		"    [T3 open - NoBoard point: 1] Grandchild\n"
	if buf.String() != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestFormatTaskFamilies_StartLevel(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskFamilies(&buf, []service.TaskFamily{{ParentTask: service.Task{ID: "9", Status: "open", Name: "x"}}}, 2)

	if buf.String() != "    [T9 open - NoBoard point: 0] x\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatTaskFamilies_AllInvalid(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskFamilies(&buf, []service.TaskFamily{{ParentTask: service.Task{ID: "1", Status: "invalid"}}}, 0)

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestFormatTask_NormalizesName(t *testing.T) {
	var buf bytes.Buffer
	FormatTask(&buf, service.Task{ID: "1", Status: "open", Name: "line one\nline two"})
	FormatTask(&buf, service.Task{ID: "2", Status: "open", Name: "  "})

	expected := "[T1 open - NoBoard point: 0] line one line two\n" +
		"[T2 open - NoBoard point: 0] (untitled)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatWatchlistName(t *testing.T) {
	id := "sprint-1"
	var buf bytes.Buffer
	FormatWatchlistName(&buf, service.Watchlist{ID: &id, Name: "Sprint 1", Tasks: []service.Task{{}, {}}})

	if buf.String() != "sprint-1  Sprint 1 (2 tasks)\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatUser(t *testing.T) {
	var buf bytes.Buffer
	FormatUser(&buf, service.User{Username: "alice", Name: "Alice A", PHID: "PHID-USER-1"})

	if buf.String() != "alice (Alice A) PHID-USER-1\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteJSON_TaskFamilies(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleForest()); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 root, got %d", len(decoded))
	}
	parent := decoded[0]["parent_task"].(map[string]interface{})
	if parent["id"] != "1" {
		t.Errorf("expected id 1, got %v", parent["id"])
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, service.Task{ID: "7", Status: "open", ProjectPHIDs: []string{"PHID-PROJ-a"}}); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`id: "7"`, "status: open", "project_phids:\n  - PHID-PROJ-a", "board: null"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
