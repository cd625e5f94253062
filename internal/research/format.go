// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/market-research/pkg/types"
)

// FormatText writes a human-readable report of res to w.
func FormatText(res types.ResearchResult, w io.Writer) {
	fmt.Fprintf(w, "Query: %s\n", res.Query)
	fmt.Fprintf(w, "Hops: %d  Sources: %d  Confidence: %.2f\n\n", res.Hops, res.NumSources(), res.Confidence)
	fmt.Fprintln(w, res.Summary)

	if len(res.Chunks) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-3s  %-5s  %-50s  %s\n", "Hop", "Score", "Title", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, c := range res.Chunks {
		fmt.Fprintf(w, "%-3d  %-5.2f  %-50s  %s\n", c.Hop, c.Score, clip(c.Title, 50), c.URL)
	}
}

// FormatAnswer writes a composed answer and its citations to w.
func FormatAnswer(a types.VoiceAnswer, w io.Writer) {
	fmt.Fprintln(w, a.Answer)
	if a.Hedge != "" {
		fmt.Fprintln(w, a.Hedge)
	}
	for i, c := range a.Citations {
		fmt.Fprintf(w, "[%d] %s\n", i+1, c)
	}
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatYAML writes v as YAML to w.
func FormatYAML(v any, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteResultFile saves res as YAML at path.
func WriteResultFile(path string, res types.ResearchResult) error {
	data, err := yaml.Marshal(&res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadResultFile loads a result saved by WriteResultFile.
func ReadResultFile(path string) (types.ResearchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var res types.ResearchResult
	if err := yaml.Unmarshal(data, &res); err != nil {
		return types.ResearchResult{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return res, nil
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
