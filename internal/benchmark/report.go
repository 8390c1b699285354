package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
)

// Encoding selects a report wire format.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// Store keeps completed suites in memory and optionally persists them to a
// directory, one file per suite.
type Store struct {
	logger *logrus.Logger
	dir    string

	mu     sync.RWMutex
	suites map[string]*BenchmarkSuite
}

// NewStore creates a report store. dir may be empty to disable persistence.
func NewStore(logger *logrus.Logger, dir string) (*Store, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	return &Store{
		logger: logger,
		dir:    dir,
		suites: make(map[string]*BenchmarkSuite),
	}, nil
}

// Save records a suite and writes it to disk when persistence is enabled.
func (s *Store) Save(suite *BenchmarkSuite) error {
	if suite == nil || suite.ID == "" {
		return fmt.Errorf("suite must have an id")
	}

	s.mu.Lock()
	s.suites[suite.ID] = suite
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}

	data, err := Encode(suite, EncodingJSON)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, suite.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"suite_id": suite.ID,
		"path":     path,
	}).Debug("Benchmark report persisted")
	return nil
}

// Get returns a stored suite by ID.
func (s *Store) Get(id string) (*BenchmarkSuite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	suite, ok := s.suites[id]
	return suite, ok
}

// List returns stored suite IDs sorted by timestamp, newest first.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.suites))
	for id := range s.suites {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.suites[ids[i]].Timestamp.After(s.suites[ids[j]].Timestamp)
	})
	return ids
}

// Encode serializes a suite in the requested format.
func Encode(suite *BenchmarkSuite, encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingJSON:
		data, err := json.MarshalIndent(suite, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report as json: %w", err)
		}
		return data, nil
	case EncodingCBOR:
		data, err := cbor.Marshal(suite)
		if err != nil {
			return nil, fmt.Errorf("encode report as cbor: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported report encoding: %q", encoding)
	}
}

// Decode parses a serialized suite.
func Decode(data []byte, encoding Encoding) (*BenchmarkSuite, error) {
	var suite BenchmarkSuite
	switch encoding {
	case EncodingJSON:
		if err := json.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("decode json report: %w", err)
		}
	case EncodingCBOR:
		if err := cbor.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("decode cbor report: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported report encoding: %q", encoding)
	}
	return &suite, nil
}
