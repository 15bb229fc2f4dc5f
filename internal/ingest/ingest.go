// Package ingest is the parallel reader pool: it opens every distinct
// staging table's backing source file once, decodes it according to its
// declared formulation (CSV/TSV/JSON/XML), and batches the mapping's
// required columns into the staging store.
package ingest

import (
	"sort"
	"sync"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/analyzer"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/staging"
)

// Job is one staging table's ingestion work: the representative mapping
// supplies the logical source (path/formulation/iterator), Raw/Columns the
// union of fields every mapping sharing this table requires.
type Job struct {
	Table   string
	Source  rossete.LogicalSource
	Raw     []string
	Columns []string
}

// Plan groups mappings by staging table (several mappings may share one
// source file and iterator) and merges their required-field sets, so a
// shared table is read and staged exactly once.
func Plan(mappings []rossete.Mapping, fields map[string]analyzer.MappingFields) []Job {
	byTable := make(map[string]*Job)
	order := make([]string, 0, len(mappings))
	for _, m := range mappings {
		table := m.TableName()
		job, ok := byTable[table]
		if !ok {
			job = &Job{Table: table, Source: m.LogicalSource}
			byTable[table] = job
			order = append(order, table)
		}
		mf := fields[m.ID]
		seen := make(map[string]bool, len(job.Raw))
		for _, c := range job.Columns {
			seen[c] = true
		}
		for i, raw := range mf.Raw {
			col := mf.Columns[i]
			if seen[col] {
				continue
			}
			seen[col] = true
			job.Raw = append(job.Raw, raw)
			job.Columns = append(job.Columns, col)
		}
	}

	jobs := make([]Job, 0, len(order))
	for _, table := range order {
		job := byTable[table]
		sortParallel(job.Raw, job.Columns)
		jobs = append(jobs, *job)
	}
	return jobs
}

// sortParallel sorts columns (and raw alongside it) so staging table
// creation order is deterministic across runs.
func sortParallel(raw, columns []string) {
	idx := make([]int, len(columns))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return columns[idx[a]] < columns[idx[b]] })
	rawCopy := append([]string(nil), raw...)
	colCopy := append([]string(nil), columns...)
	for i, j := range idx {
		raw[i] = rawCopy[j]
		columns[i] = colCopy[j]
	}
}

// Run executes every Job against store, respecting specs overrides (keyed
// by source path) for delimiter/header/encoding/file-type. At most width
// jobs ingest concurrently, matching the configured reading-thread pool.
func Run(store *staging.Store, jobs []Job, specs func(path string) config.FileSpecs, width int) error {
	if width < 1 {
		width = 1
	}
	sem := make(chan struct{}, width)
	errs := make(chan error, len(jobs))
	var wg sync.WaitGroup

	for _, job := range jobs {
		job := job
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs <- runJob(store, job, specs(job.Source.Source))
		}()
	}
	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func runJob(store *staging.Store, job Job, spec config.FileSpecs) error {
	if err := store.CreateTable(job.Table, job.Columns); err != nil {
		return err
	}
	batch, err := store.NewBatch(job.Table, job.Columns)
	if err != nil {
		return err
	}

	var ingestErr error
	switch job.Source.Formulation {
	case rossete.FormulationCSV, rossete.FormulationTSV:
		ingestErr = ingestDelimited(batch, job, spec)
	case rossete.FormulationJSON:
		ingestErr = ingestJSON(batch, job, spec)
	case rossete.FormulationXML:
		ingestErr = ingestXML(batch, job, spec)
	default:
		ingestErr = rossete.NewErrorIn(rossete.KindIncorrectPath, "unsupported reference formulation", job.Source.Source)
	}

	if closeErr := batch.Close(); ingestErr == nil {
		ingestErr = closeErr
	}
	if ingestErr != nil {
		return ingestErr
	}
	return store.Dedup(job.Table, job.Columns)
}
