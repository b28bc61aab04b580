// Package file implements the store interfaces on top of flat files:
// one JSON file holding the full mission array and one JSONL file of
// terminal mission outcomes capped at the most recent entries.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"robotplane/internal/store"
)

const (
	missionsFile = "missions.json"
	auditFile    = "audit.jsonl"

	// DefaultAuditCap is the number of terminal outcomes retained.
	DefaultAuditCap = 100
)

// Store is a flat-file implementation of store.Store.
type Store struct {
	mu           sync.Mutex
	missionsPath string
	auditPath    string
	auditCap     int
}

// New creates the data directory if needed and returns a file store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		missionsPath: filepath.Join(dir, missionsFile),
		auditPath:    filepath.Join(dir, auditFile),
		auditCap:     DefaultAuditCap,
	}, nil
}

// LoadMissions implements store.Store.
func (s *Store) LoadMissions(_ context.Context) ([]*store.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.missionsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read missions snapshot: %w", err)
	}

	var missions []*store.Mission
	if err := json.Unmarshal(data, &missions); err != nil {
		return nil, fmt.Errorf("decode missions snapshot: %w", err)
	}
	return missions, nil
}

// SaveMissions implements store.Store. The snapshot is written to a temp
// file and renamed so a crash mid-write never truncates the previous copy.
func (s *Store) SaveMissions(_ context.Context, missions []*store.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if missions == nil {
		missions = []*store.Mission{}
	}
	data, err := json.MarshalIndent(missions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode missions snapshot: %w", err)
	}
	return atomicWrite(s.missionsPath, data)
}

// AppendAudit implements store.Store.
func (s *Store) AppendAudit(_ context.Context, rec store.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAudit()
	if err != nil {
		return err
	}

	records = append(records, rec)
	if len(records) > s.auditCap {
		records = records[len(records)-s.auditCap:]
	}

	var buf []byte
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return atomicWrite(s.auditPath, buf)
}

// ListAudit implements store.Store.
func (s *Store) ListAudit(_ context.Context) ([]store.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAudit()
}

// Ping implements store.Store by verifying the data directory is writable.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(s.missionsPath), ".ping-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) readAudit() ([]store.AuditRecord, error) {
	f, err := os.Open(s.auditPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var records []store.AuditRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec store.AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return records, nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
