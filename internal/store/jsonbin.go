package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/debrief-io/debrief/internal/core"
	"go.uber.org/zap"
)

const jsonbinBase = "https://api.jsonbin.io/v3/b"

// JSONBinStore persists the config document in a jsonbin.io bin, with a
// local JSON file as backup and a cached copy as the degraded-mode
// source when the service is unreachable.
type JSONBinStore struct {
	binID     string
	masterKey string
	backup    string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger

	mu   sync.Mutex
	last *Document // last successfully loaded or written document
}

// NewJSONBinStore creates a store for the given bin.
func NewJSONBinStore(binID, masterKey, backupPath string, logger *zap.Logger) *JSONBinStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONBinStore{
		binID:     binID,
		masterKey: masterKey,
		backup:    backupPath,
		baseURL:   jsonbinBase,
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

// Load fetches the latest document. On failure it falls back to the
// last known in-memory copy, then the local backup, then defaults —
// the loop keeps operating when the store is down.
func (s *JSONBinStore) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *JSONBinStore) loadLocked(ctx context.Context) (*Document, error) {
	doc, err := s.fetch(ctx)
	if err == nil {
		s.last = doc.Clone()
		return doc, nil
	}
	s.logger.Warn("config store unreachable, using fallback", zap.Error(err))

	if s.last != nil {
		return s.last.Clone(), nil
	}
	if doc, ferr := s.readBackup(); ferr == nil {
		s.last = doc.Clone()
		return doc, nil
	}
	doc = DefaultDocument()
	s.last = doc.Clone()
	return doc, nil
}

// Update performs a read-modify-write cycle: fetch latest, apply fn,
// put back. Serialized within the process so concurrent writers cannot
// interleave partial updates.
func (s *JSONBinStore) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.Normalize()
	s.last = doc.Clone()
	s.writeBackup(doc)

	if err := s.put(ctx, doc); err != nil {
		return core.WrapError(core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *JSONBinStore) fetch(ctx context.Context) (*Document, error) {
	url := fmt.Sprintf("%s/%s/latest", s.baseURL, s.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Master-Key", s.masterKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrStoreUnavailable,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var envelope struct {
		Record Document `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	doc := envelope.Record
	doc.Normalize()
	return &doc, nil
}

func (s *JSONBinStore) put(ctx context.Context, doc *Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, s.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Master-Key", s.masterKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func (s *JSONBinStore) readBackup() (*Document, error) {
	if s.backup == "" {
		return nil, core.ErrNoData
	}
	data, err := os.ReadFile(s.backup)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return &doc, nil
}

func (s *JSONBinStore) writeBackup(doc *Document) {
	if s.backup == "" {
		return
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.backup, data, 0o644); err != nil {
		s.logger.Warn("writing config backup", zap.Error(err))
	}
}
