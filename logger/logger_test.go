package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInit_WritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := initWithOutput("worker", "debug", &buf)

	WithRequestID(l, "req-1").Debug("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if entry["service"] != "worker" || entry["request_id"] != "req-1" || entry["message"] != "hello" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts field: %v", entry)
	}
	if Logger != l {
		t.Fatalf("package Logger was not replaced")
	}
}

func TestInit_IgnoresUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	l := initWithOutput("api", "loud", &buf)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at default level: %s", buf.String())
	}
}
