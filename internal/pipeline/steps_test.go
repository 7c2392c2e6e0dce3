package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/dvloznov/family-ledger/internal/blob"
)

func newTrackingStore(t *testing.T) *trackingBlobStore {
	t.Helper()
	local, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return &trackingBlobStore{Store: local}
}

func assertCleanedUp(t *testing.T, store *trackingBlobStore) {
	t.Helper()
	if len(store.put) != 1 {
		t.Fatalf("expected one stored upload, got %d", len(store.put))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.put[0] {
		t.Errorf("upload %q was not deleted (deleted: %v)", store.put[0], store.deleted)
	}
	if _, err := os.Stat(store.put[0]); !os.IsNotExist(err) {
		t.Errorf("upload file still on disk: %v", err)
	}
}

func TestParser_Parse(t *testing.T) {
	store := newTrackingStore(t)
	extractor := &MockExtractor{
		ExtractFunc: func(ctx context.Context, doc Document, prompt string) (string, error) {
			if doc.MIMEType != "image/png" {
				t.Errorf("MIMEType = %q, want image/png", doc.MIMEType)
			}
			if string(doc.Data) != "png-bytes" {
				t.Errorf("Data = %q", doc.Data)
			}
			if !strings.Contains(prompt, "1. Groceries") {
				t.Error("prompt does not list the user's categories")
			}
			return "```json\n" + `[
				{"date":"2024-03-05","description":"Mercado","amount":120.5,"type":"expense","category":"Groceries"},
				{"date":"2024-03-06","description":"Broken","type":"expense"}
			]` + "\n```", nil
		},
	}

	p := NewParser(store, extractor)
	rows := p.Parse(context.Background(), "scan.png", strings.NewReader("png-bytes"), []string{"Groceries"})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Category != "Groceries" {
		t.Errorf("Category = %q, want Groceries", rows[0].Category)
	}
	assertCleanedUp(t, store)
}

func TestParser_FailuresYieldEmptyResult(t *testing.T) {
	tests := []struct {
		name    string
		extract func(ctx context.Context, doc Document, prompt string) (string, error)
	}{
		{"missing credential", func(context.Context, Document, string) (string, error) {
			return "", ErrMissingCredential
		}},
		{"request failure", func(context.Context, Document, string) (string, error) {
			return "", errors.New("connection reset")
		}},
		{"empty response", func(context.Context, Document, string) (string, error) {
			return "", nil
		}},
		{"unparseable response", func(context.Context, Document, string) (string, error) {
			return "I could not read the statement.", nil
		}},
		{"no valid rows", func(context.Context, Document, string) (string, error) {
			return `[{"data":"2024-03-05","descricao":"Mercado","tipo":"D"}]`, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTrackingStore(t)
			p := NewParser(store, &MockExtractor{ExtractFunc: tt.extract})

			rows := p.Parse(context.Background(), "statement.pdf", strings.NewReader("%PDF"), nil)
			if rows == nil || len(rows) != 0 {
				t.Errorf("expected an empty, non-nil result, got %v", rows)
			}
			assertCleanedUp(t, store)
		})
	}
}

func TestParser_EmptyUpload(t *testing.T) {
	store := newTrackingStore(t)
	extractor := &MockExtractor{}
	p := NewParser(store, extractor)

	rows := p.Parse(context.Background(), "statement.pdf", strings.NewReader(""), nil)
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
	if len(extractor.calls) != 0 {
		t.Error("empty upload should not reach the model")
	}
	assertCleanedUp(t, store)
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran []int
	step := func(n int, err error) PipelineStep {
		return stepFunc(func(ctx context.Context, state *ParseState) error {
			ran = append(ran, n)
			return err
		})
	}

	err := NewPipeline(step(1, nil), step(2, boom), step(3, nil)).Execute(context.Background(), &ParseState{})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "step 2") {
		t.Errorf("error should name the failing step: %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran steps %v, want [1 2]", ran)
	}
}

type stepFunc func(ctx context.Context, state *ParseState) error

func (f stepFunc) Execute(ctx context.Context, state *ParseState) error { return f(ctx, state) }
