package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"feature-store-service/internal/core/domain"
)

type entityRowSpec struct {
	JoinKeys       map[string]interface{} `json:"join_keys"`
	EventTimestamp time.Time              `json:"event_timestamp"`
}

// readEntityRows loads timestamped entity rows for historical
// retrieval and training from a JSON file:
//
//	[{"join_keys": {"customer_id": 1}, "event_timestamp": "2024-03-01T00:00:00Z"}, ...]
func readEntityRows(path string) ([]domain.EntityRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var specs []entityRowSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse entity rows %s: %w", path, err)
	}

	rows := make([]domain.EntityRow, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, domain.EntityRow{
			JoinKeyValues:  s.JoinKeys,
			EventTimestamp: s.EventTimestamp,
		})
	}
	return rows, nil
}

// readKeyRows loads plain join-key rows for online retrieval and
// prediction from a JSON file:
//
//	[{"customer_id": 1}, {"customer_id": 2}]
func readKeyRows(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse key rows %s: %w", path, err)
	}
	return rows, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q (want RFC3339): %w", value, err)
	}
	return t, nil
}
