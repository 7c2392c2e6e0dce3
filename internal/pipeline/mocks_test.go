package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/dvloznov/family-ledger/internal/blob"
)

// MockExtractor is a mock implementation of Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, doc Document, prompt string) (string, error)

	mu    sync.Mutex
	calls []Document
}

func (m *MockExtractor) Extract(ctx context.Context, doc Document, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, doc)
	m.mu.Unlock()
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, doc, prompt)
	}
	return "", nil
}

// trackingBlobStore records which keys were written and deleted.
type trackingBlobStore struct {
	blob.Store

	mu      sync.Mutex
	put     []string
	deleted []string
}

func (s *trackingBlobStore) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	key, err := s.Store.Put(ctx, filename, r)
	if err == nil {
		s.mu.Lock()
		s.put = append(s.put, key)
		s.mu.Unlock()
	}
	return key, err
}

func (s *trackingBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return s.Store.Delete(ctx, key)
}

// MockHook is a mock implementation of Hook for testing.
type MockHook struct {
	NameValue    string
	OnCommitFunc func(ctx context.Context, receipt CommitReceipt) error

	mu       sync.Mutex
	receipts []CommitReceipt
}

func (m *MockHook) Name() string { return m.NameValue }

func (m *MockHook) OnCommit(ctx context.Context, receipt CommitReceipt) error {
	m.mu.Lock()
	m.receipts = append(m.receipts, receipt)
	m.mu.Unlock()
	if m.OnCommitFunc != nil {
		return m.OnCommitFunc(ctx, receipt)
	}
	return nil
}
