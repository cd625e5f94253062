// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/market-research/pkg/types"
)

// CandidateFile is the on-disk form of a search: the query, the ordered
// candidates, and how they were produced. A saved file can feed the
// research loop later without querying providers again.
type CandidateFile struct {
	Query      string            `yaml:"query"`
	Candidates []types.Candidate `yaml:"candidates"`
	Summary    CandidateSummary  `yaml:"summary"`
}

// CandidateSummary records result statistics and a timestamp.
type CandidateSummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	BackendErrors     []string  `yaml:"backend_errors,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteCandidateFile saves a search output as YAML.
func WriteCandidateFile(path, query string, out Output) error {
	cf := CandidateFile{
		Query:      query,
		Candidates: out.Candidates,
		Summary: CandidateSummary{
			Total:             len(out.Candidates),
			DuplicatesRemoved: out.DupsRemoved,
			BackendErrors:     out.BackendErrors,
			Timestamp:         time.Now(),
		},
	}
	data, err := yaml.Marshal(&cf)
	if err != nil {
		return fmt.Errorf("marshaling candidate file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadCandidateFile loads candidates from path. It accepts a file written
// by WriteCandidateFile or a bare YAML/JSON list of candidates.
func ReadCandidateFile(path string) (*CandidateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidate file: %w", err)
	}

	var list []types.Candidate
	if err := yaml.Unmarshal(data, &list); err == nil {
		return &CandidateFile{Candidates: list}, nil
	}

	var cf CandidateFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing candidate file: %w", err)
	}
	return &cf, nil
}

// FileBackend serves candidates from a saved file, ignoring the query.
type FileBackend struct {
	Path string
}

// Name returns the backend identifier.
func (b FileBackend) Name() string { return "file" }

// Search returns the file's candidates.
func (b FileBackend) Search(_ context.Context, _ string, _ types.SearchConfig) ([]types.Candidate, error) {
	cf, err := ReadCandidateFile(b.Path)
	if err != nil {
		return nil, err
	}
	return cf.Candidates, nil
}
