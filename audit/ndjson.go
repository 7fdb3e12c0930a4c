package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// NDJSONSink appends each record as one JSON line to <dir>/<user>.ndjson and,
// when globalPath is set, to that file as well.
type NDJSONSink struct {
	dir        string
	globalPath string
}

func NewNDJSONSink(dir, globalPath string) (*NDJSONSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit log dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	if globalPath != "" {
		if err := os.MkdirAll(filepath.Dir(globalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create audit global dir: %w", err)
		}
	}
	return &NDJSONSink{dir: dir, globalPath: globalPath}, nil
}

func (s *NDJSONSink) Write(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	line = append(line, '\n')

	if err := appendFile(filepath.Join(s.dir, fileNameFor(rec.UserID)), line); err != nil {
		return err
	}
	if s.globalPath != "" {
		return appendFile(s.globalPath, line)
	}
	return nil
}

func (s *NDJSONSink) Close() error { return nil }

func fileNameFor(userID string) string {
	name := unsafePathChars.ReplaceAllString(userID, "_")
	if name == "" || name == "." || name == ".." {
		name = "anonymous"
	}
	return name + ".ndjson"
}

func appendFile(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append audit record: %w", err)
	}
	return f.Close()
}
