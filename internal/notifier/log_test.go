package notifier

import (
	"context"
	"log"
	"strings"
	"testing"

	"crew-radar/internal/model"
)

func TestLogNotifierWritesJobs(t *testing.T) {
	var buf strings.Builder
	logger := log.New(&buf, "", 0)
	n := NewLogNotifier(logger)

	jobs := []model.Job{{
		Title:      "Chief Stew",
		Source:     model.SourceYotspot,
		Department: model.DepartmentInterior,
		SourceURL:  "https://example.com/1",
	}}

	if err := n.Notify(context.Background(), jobs); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "Chief Stew") || !strings.Contains(logged, "https://example.com/1") {
		t.Fatalf("log output missing job info: %s", logged)
	}
	if !strings.Contains(logged, "department=interior") {
		t.Fatalf("log output missing department: %s", logged)
	}
}

func TestLogNotifierSkipsEmptyJobs(t *testing.T) {
	var buf strings.Builder
	logger := log.New(&buf, "", 0)
	n := NewLogNotifier(logger)

	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %q", buf.String())
	}
}
