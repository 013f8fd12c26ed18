package nn

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a forest artifact and validates it against the expected feature
// order. The format is chosen by extension: .yaml, .yml and .json are decoded
// as YAML, .db and .sqlite are opened as a read-only SQLite database.
func Load(path string, expected []string) (*Forest, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	var (
		f   *Forest
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		f, err = loadYAML(path)
	case ".db", ".sqlite", ".sqlite3":
		f, err = loadSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := f.Validate(expected); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

func loadYAML(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeYAML(data)
}

// DecodeYAML parses a forest document. Unknown fields are rejected.
func DecodeYAML(data []byte) (*Forest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Forest
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &f, nil
}

// EncodeYAML renders f as a YAML document.
func EncodeYAML(f *Forest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
