package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupRenamesKeysAndMasksSecrets(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := setup(&buf, "liquidstaked", "test", slog.LevelInfo)
	logger.Info("rpc ready", "token", "s3cret", "address", ":8545")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["message"] != "rpc ready" || line["severity"] != "INFO" {
		t.Fatalf("unexpected envelope: %v", line)
	}
	if line["service"] != "liquidstaked" || line["env"] != "test" {
		t.Fatalf("missing service attributes: %v", line)
	}
	if line["token"] != RedactedValue {
		t.Fatalf("token not masked: %v", line["token"])
	}
	if line["address"] != ":8545" {
		t.Fatalf("address should pass through: %v", line["address"])
	}
}

func TestSetupHonoursLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := setup(&buf, "svc", "", ParseLevel("warn"))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line should be filtered at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Fatalf("warn line missing")
	}
}

func TestMaskValue(t *testing.T) {
	if MaskValue("") != "" {
		t.Fatalf("empty values stay empty")
	}
	if MaskValue("x") != RedactedValue {
		t.Fatalf("non-empty values must be masked")
	}
	if !IsSensitive(" Passphrase ") {
		t.Fatalf("passphrase must be sensitive")
	}
	if len(SensitiveKeys()) != len(sensitiveKeys) {
		t.Fatalf("sensitive key listing incomplete")
	}
}
