package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadRecords loads raw records from a JSON or YAML file. The document may
// be a list of objects, a single object, or an object with the list under
// key (for example "jobs" or "users").
func ReadRecords(path, key string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecords(data, filepath.Ext(path), key)
}

// ParseRecords decodes raw records. ext selects JSON (".json") or YAML
// (anything else).
func ParseRecords(data []byte, ext, key string) ([]map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	if obj, ok := doc.(map[string]any); ok {
		if nested, found := obj[key]; found && key != "" {
			doc = nested
		} else {
			return []map[string]any{obj}, nil
		}
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of records, got %T", doc)
	}

	records := make([]map[string]any, 0, len(list))
	for idx, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object, got %T", idx, item)
		}
		records = append(records, record)
	}
	return records, nil
}
