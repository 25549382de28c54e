package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestDatabaseErrorCarriesOperationAndContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.DatabaseError("assignment.audit", errors.New("connection reset"), "leadId", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "database_error" || entry["level"] != "ERROR" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["operation"] != "assignment.audit" || entry["error"] != "connection reset" || entry["leadId"] != "abc" {
		t.Fatalf("missing attributes in %v", entry)
	}
}

func TestWithComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).WithComponent("scheduler").Info("tick")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "scheduler" {
		t.Fatalf("expected component attribute, got %v", entry)
	}
}
