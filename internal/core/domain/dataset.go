package domain

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// EntityRow is one row of the entity dataframe used for historical
// retrieval: the join key values identifying the entity plus the
// event timestamp the features should be observed at.
type EntityRow struct {
	JoinKeyValues  map[string]interface{} `json:"join_key_values"`
	EventTimestamp time.Time              `json:"event_timestamp"`
}

// FeatureRow is one row read from an offline source: the entity join
// key values, the time the values were observed, the optional time the
// row was written, and the feature values by name.
type FeatureRow struct {
	JoinKeyValues    map[string]interface{} `json:"join_key_values"`
	EventTimestamp   time.Time              `json:"event_timestamp"`
	CreatedTimestamp time.Time              `json:"created_timestamp"`
	Values           map[string]interface{} `json:"values"`
}

// SerializeEntityKey builds the canonical key string for a set of join
// key values. Keys are sorted so that composite keys serialize the same
// regardless of map order. Values are canonicalized first so that e.g.
// int32(5) and int64(5) produce the same key.
func SerializeEntityKey(joinKeys []string, values map[string]interface{}) (string, error) {
	sorted := append([]string{}, joinKeys...)
	sort.Strings(sorted)

	parts := make([]string, 0, len(sorted))
	for _, k := range sorted {
		v, ok := values[k]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %s", ErrMissingJoinKeyValue, k)
		}
		parts = append(parts, k+"="+formatKeyValue(v))
	}

	key := parts[0]
	for _, p := range parts[1:] {
		key += "|" + p
	}
	return key, nil
}

// formatKeyValue renders a canonicalized value for use in an entity key
func formatKeyValue(v interface{}) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	case []byte:
		return hex.EncodeToString(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TrainingDataset is a column-ordered result set produced by historical
// retrieval. The first columns are the entity join keys and the event
// timestamp, followed by one "view__feature" column per requested
// feature reference. A nil cell means no feature value qualified.
type TrainingDataset struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// ColumnIndex returns the position of a column, or -1 when absent
func (d *TrainingDataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// WriteCSV writes the dataset with a header row. Timestamps are
// rendered RFC3339 and nil cells as empty strings.
func (d *TrainingDataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return err
	}
	record := make([]string, len(d.Columns))
	for _, row := range d.Rows {
		for i := range d.Columns {
			if i < len(row) {
				record[i] = formatCSVValue(row[i])
			} else {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCSVValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	case []byte:
		return hex.EncodeToString(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NumericMatrix extracts a feature matrix and label vector for model
// training. Rows with a nil label or any nil feature are dropped;
// non-numeric cells fail with ErrNonNumericFeature so a bad column is
// caught rather than silently zeroed.
func (d *TrainingDataset) NumericMatrix(featureColumns []string, labelColumn string) ([][]float64, []float64, error) {
	labelIdx := d.ColumnIndex(labelColumn)
	if labelIdx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrLabelNotFound, labelColumn)
	}
	featureIdx := make([]int, len(featureColumns))
	for i, c := range featureColumns {
		idx := d.ColumnIndex(c)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, c)
		}
		featureIdx[i] = idx
	}

	var (
		matrix [][]float64
		labels []float64
	)
	for _, row := range d.Rows {
		label, ok := NumericValue(row[labelIdx])
		if !ok {
			if row[labelIdx] == nil {
				continue
			}
			return nil, nil, fmt.Errorf("%w: %s", ErrNonNumericFeature, labelColumn)
		}

		sample := make([]float64, len(featureIdx))
		skip := false
		for i, idx := range featureIdx {
			v, ok := NumericValue(row[idx])
			if !ok {
				if row[idx] == nil {
					skip = true
					break
				}
				return nil, nil, fmt.Errorf("%w: %s", ErrNonNumericFeature, featureColumns[i])
			}
			sample[i] = v
		}
		if skip {
			continue
		}
		matrix = append(matrix, sample)
		labels = append(labels, label)
	}

	if len(matrix) == 0 {
		return nil, nil, ErrEmptyTrainingSet
	}
	return matrix, labels, nil
}

// OnlineRow is the online store read result for one entity key
type OnlineRow struct {
	Found          bool                   `json:"found"`
	EventTimestamp time.Time              `json:"event_timestamp"`
	Values         map[string]interface{} `json:"values"`
}
