// Package pipeline drives the parsing, ingestion and materialization pools
// through the controller's state machine and joins each pool before
// advancing to the next, the Go analogue of the original's sequential
// "Idle -> Parsing -> FieldAnalysis -> Ingestion -> Materialization -> Done"
// run loop with an absorbing Failed state on any worker error.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/analyzer"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/ingest"
	"github.com/RubenCid35/rossete/internal/logging"
	"github.com/RubenCid35/rossete/internal/materialize"
	"github.com/RubenCid35/rossete/internal/staging"
	"github.com/RubenCid35/rossete/internal/writer"
)

// State names one step of the controller's state machine.
type State int

const (
	Idle State = iota
	Parsing
	FieldAnalysis
	Ingestion
	Materialization
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Parsing:
		return "Parsing"
	case FieldAnalysis:
		return "FieldAnalysis"
	case Ingestion:
		return "Ingestion"
	case Materialization:
		return "Materialization"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result summarizes a completed run: the final state, total triples written,
// and the ids of any mapping whose materialization worker failed.
type Result struct {
	State        State
	TriplesCount int64
	FailedMaps   []string
}

// Run executes the whole pipeline for cfg, returning once Done or Failed.
func Run(cfg config.Config, logger *logging.WarnOnce) (Result, error) {
	state := Idle

	// --- Parsing ---
	state = Parsing
	files, err := mappingFiles(cfg.MappingsPath)
	if err != nil {
		return Result{State: Failed}, err
	}

	prefixes := rossete.NewPrefixMap()
	var allMappings []rossete.Mapping
	var parseErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(cfg.Threads.Parsing, 1))

	for _, path := range files {
		path := path
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			buf, err := os.ReadFile(path)
			if err != nil {
				mu.Lock()
				if parseErr == nil {
					parseErr = rossete.WrapError(rossete.KindFileNotFound, "read mapping file "+path, err)
				}
				mu.Unlock()
				return
			}
			p := rossete.NewParser(buf, path)
			pm, mappings, err := p.Parse()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if parseErr == nil {
					parseErr = err
				}
				return
			}
			prefixes.Merge(pm)
			allMappings = append(allMappings, mappings...)
		}()
	}
	wg.Wait()
	if parseErr != nil {
		return Result{State: Failed}, parseErr
	}
	prefixes.Freeze()

	sort.Slice(allMappings, func(i, j int) bool { return allMappings[i].ID < allMappings[j].ID })
	byID := make(map[string]rossete.Mapping, len(allMappings))
	for _, m := range allMappings {
		byID[m.ID] = m
	}

	// --- Field analysis ---
	state = FieldAnalysis
	fields, err := analyzer.Analyze(allMappings)
	if err != nil {
		return Result{State: Failed}, err
	}

	// --- Ingestion ---
	state = Ingestion
	jobs := ingest.Plan(allMappings, fields)

	var totalBytes int64
	for _, job := range jobs {
		if info, err := os.Stat(job.Source.Source); err == nil {
			totalBytes += info.Size()
		}
	}

	var store *staging.Store
	if cfg.InMemory(totalBytes) {
		store, err = staging.OpenInMemory()
	} else {
		store, err = staging.OpenDisk(".")
	}
	if err != nil {
		return Result{State: Failed}, err
	}
	defer store.Close()

	if err := ingest.Run(store, jobs, cfg.SpecFor, max(cfg.Threads.Reading, 1)); err != nil {
		return Result{State: Failed}, err
	}

	// --- Materialization + write ---
	state = Materialization
	if writer.Exists(cfg.OutputPath) && logger != nil {
		logger.Warn("output|"+cfg.OutputPath, "output file exists and will be overwritten", "output", cfg.OutputPath)
	}
	sink, err := writer.Open(cfg.OutputPath)
	if err != nil {
		return Result{State: Failed}, err
	}
	defer sink.Close()

	format := writer.OutputFormat(cfg.OutputFormat)

	var failedMaps []string
	var triplesCount int64
	var writeMu sync.Mutex
	var writeErr error
	var mwg sync.WaitGroup
	msem := make(chan struct{}, max(cfg.Threads.Writing, 1))

	for _, m := range allMappings {
		m := m
		mwg.Add(1)
		msem <- struct{}{}
		go func() {
			defer mwg.Done()
			defer func() { <-msem }()

			err := materialize.Run(m, byID, fields, store, prefixes, logger, func(block writer.SubjectBlock) error {
				writeMu.Lock()
				defer writeMu.Unlock()
				if err := sink.RenderBlock(block, format); err != nil {
					return err
				}
				triplesCount += int64(len(block.Pairs))
				return nil
			})
			if err != nil {
				writeMu.Lock()
				failedMaps = append(failedMaps, m.ID)
				if writeErr == nil {
					writeErr = err
				}
				writeMu.Unlock()
			}
		}()
	}
	mwg.Wait()

	if cfg.Clear {
		if err := staging.RemoveWorkDir("."); err != nil {
			return Result{State: Failed}, rossete.WrapError(rossete.KindWriteFailed, "remove working directory", err)
		}
	}

	if len(failedMaps) > 0 {
		sort.Strings(failedMaps)
		return Result{State: Failed, TriplesCount: triplesCount, FailedMaps: failedMaps},
			rossete.WrapError(rossete.KindFailedToCreateRDF, fmt.Sprintf("materialization failed for maps: %s", strings.Join(failedMaps, ", ")), writeErr)
	}

	state = Done
	return Result{State: state, TriplesCount: triplesCount}, nil
}

// mappingFiles resolves path into a sorted list of mapping files: the path
// itself if it names a file, or every "*.ttl" file directly under it if it
// names a directory, per the CLI's "--mappings PATH (file or directory;
// when directory, all *.ttl files are picked up)" contract.
func mappingFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, rossete.WrapError(rossete.KindFileNotFound, "stat mappings path "+path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, rossete.WrapError(rossete.KindFileNotFound, "read mappings directory "+path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ttl") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
