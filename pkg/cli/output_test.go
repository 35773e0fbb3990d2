package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	result := map[string]any{"id": 7, "name": "Alice"}
	err := Output(result, OutputOptions{Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if decoded["name"] != "Alice" {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(buf.String(), "  \"id\"") {
		t.Errorf("output not indented: %q", buf.String())
	}
}

func TestOutput_YAMLDefault(t *testing.T) {
	var buf bytes.Buffer
	result := struct {
		Name  string  `yaml:"name"`
		Score float64 `yaml:"score"`
	}{Name: "Alice", Score: 0.91}

	// Empty format falls back to YAML.
	if err := Output(result, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "name: Alice") || !strings.Contains(out, "score: 0.91") {
		t.Errorf("yaml output = %q", out)
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	err := Output("x", OutputOptions{Format: "xml", Writer: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported output format") {
		t.Errorf("err = %v", err)
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	err := Output(map[string]string{"k": "v"}, OutputOptions{Format: FormatJSON, File: path})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"k": "v"`) {
		t.Errorf("file contents = %q", data)
	}
}
