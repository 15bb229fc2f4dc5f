package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/encoding"
	"github.com/RubenCid35/rossete/internal/staging"
)

// ingestDelimited reads a CSV/TSV source, using the header row to map
// column names onto job.Raw positions, and stages job.Columns for every
// data row. A required column absent from the header is fatal.
func ingestDelimited(batch *staging.Batch, job Job, spec config.FileSpecs) error {
	f, err := os.Open(job.Source.Source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rossete.NewErrorIn(rossete.KindFileNotFound, "data source not found", job.Source.Source)
		}
		return rossete.WrapError(rossete.KindParseFailureCSV, "open data source", err)
	}
	defer f.Close()

	delim := spec.Delimiter
	if delim == 0 {
		delim = ','
		if job.Source.Formulation == rossete.FormulationTSV {
			delim = '\t'
		}
	}

	decoded, err := encoding.Validated(spec.Encoding, f)
	if err != nil {
		return rossete.WrapError(rossete.KindParseFailureCSV, "validate data source encoding", err)
	}

	r := csv.NewReader(decoded)
	r.Comma = delim
	r.FieldsPerRecord = -1

	for skipped := uint32(0); skipped < spec.Header; skipped++ {
		if _, err := r.Read(); err != nil {
			return rossete.WrapError(rossete.KindParseFailureCSV, "skip to header row", err)
		}
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rossete.NewErrorIn(rossete.KindNoDataReceived, "data source is empty", job.Source.Source)
		}
		return rossete.WrapError(rossete.KindParseFailureCSV, "read header row", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	positions := make([]int, len(job.Raw))
	for i, field := range job.Raw {
		pos, ok := index[field]
		if !ok {
			return rossete.NewErrorIn(rossete.KindMissingColumn, "required column "+field+" absent from header", job.Source.Source)
		}
		positions[i] = pos
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return rossete.WrapError(rossete.KindParseFailureCSV, "read data row", err)
		}
		values := make([]string, len(positions))
		for i, pos := range positions {
			if pos < len(record) {
				values[i] = record[pos]
			}
		}
		if _, err := batch.Insert(values); err != nil {
			return rossete.WrapError(rossete.KindInteractionFailed, "insert staged row", err)
		}
	}
}
