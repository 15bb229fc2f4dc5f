package ingest

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/encoding"
	"github.com/RubenCid35/rossete/internal/staging"
)

// jsonRecords selects the array the iterator expression names. Iterators
// are a small JSONPath subset: an optional leading "$.", dot-separated
// object keys, and a trailing "[*]" marking the repeating element (omitted
// when the named value is already an array).
func jsonRecords(root any, iterator string) ([]any, error) {
	path := strings.TrimPrefix(iterator, "$.")
	path = strings.TrimSuffix(path, "[*]")

	cur := root
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, rossete.NewError(rossete.KindParseFailureJSON, "iterator path does not resolve to an object at "+key)
			}
			next, ok := m[key]
			if !ok {
				return nil, rossete.NewError(rossete.KindParseFailureJSON, "iterator path missing key "+key)
			}
			cur = next
		}
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, rossete.NewError(rossete.KindParseFailureJSON, "iterator does not resolve to an array")
	}
	return arr, nil
}

// jsonField evaluates a dot-path sub-path against one record, coercing the
// result to a string. Arrays, objects and null all cause the field to be
// reported absent, and ingestJSON then skips the whole row.
func jsonField(record any, field string) (string, bool) {
	field = strings.TrimPrefix(field, "$.")
	cur := record
	if field != "" {
		for _, key := range strings.Split(field, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			next, ok := m[key]
			if !ok {
				return "", false
			}
			cur = next
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func ingestJSON(batch *staging.Batch, job Job, spec config.FileSpecs) error {
	f, err := os.Open(job.Source.Source)
	if err != nil {
		return rossete.WrapError(rossete.KindParseFailureJSON, "open data source", err)
	}
	defer f.Close()

	decoded, err := encoding.Validated(spec.Encoding, f)
	if err != nil {
		return rossete.WrapError(rossete.KindParseFailureJSON, "validate data source encoding", err)
	}

	var root any
	if err := json.NewDecoder(decoded).Decode(&root); err != nil {
		return rossete.WrapError(rossete.KindParseFailureJSON, "decode JSON document", err)
	}

	records, err := jsonRecords(root, job.Source.Iterator)
	if err != nil {
		return err
	}

	for _, record := range records {
		values := make([]string, len(job.Raw))
		skip := false
		for i, field := range job.Raw {
			v, ok := jsonField(record, field)
			if !ok {
				skip = true
				break
			}
			values[i] = v
		}
		if skip {
			continue
		}
		if _, err := batch.Insert(values); err != nil {
			return rossete.WrapError(rossete.KindInteractionFailed, "insert staged row", err)
		}
	}
	return nil
}
