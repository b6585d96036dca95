package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes every run in s to w, one JSON object per line, newest
// first.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer) (int, error) {
	runs, err := s.List(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	for i, r := range runs {
		if err := enc.Encode(r); err != nil {
			return i, fmt.Errorf("failed to encode run %s: %w", r.ID, err)
		}
	}
	return len(runs), nil
}

// ImportJSONL records every run read from r into s. Blank lines are skipped;
// a malformed line aborts the import with its line number.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	n, lineNum := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var run Run
		if err := json.Unmarshal(line, &run); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := s.Record(ctx, run); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNum, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("scanner error: %w", err)
	}
	return n, nil
}
