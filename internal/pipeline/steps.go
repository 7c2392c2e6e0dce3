package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/family-ledger/internal/blob"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
)

// PipelineStep represents a single step of statement parsing.
type PipelineStep interface {
	Execute(ctx context.Context, state *ParseState) error
}

// ParseState holds the shared state across all parse steps.
type ParseState struct {
	Filename   string
	Upload     io.Reader
	Categories []string
	Now        time.Time

	BlobKey    string
	Document   Document
	RawOutput  string
	Results    []RowResult
	Candidates []domain.Candidate
}

// Step 1: PersistUploadStep copies the upload to transient storage.
type PersistUploadStep struct {
	Blobs blob.Store
}

func (s *PersistUploadStep) Execute(ctx context.Context, state *ParseState) error {
	key, err := s.Blobs.Put(ctx, state.Filename, state.Upload)
	if err != nil {
		return err
	}
	state.BlobKey = key
	return nil
}

// Step 2: ReadDocumentStep loads the stored upload and detects its type.
type ReadDocumentStep struct {
	Blobs blob.Store
}

func (s *ReadDocumentStep) Execute(ctx context.Context, state *ParseState) error {
	data, err := s.Blobs.Get(ctx, state.BlobKey)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("ReadDocumentStep: upload %q is empty", state.Filename)
	}
	state.Document = Document{
		Filename: state.Filename,
		MIMEType: DetectMIMEType(state.Filename),
		Data:     data,
	}
	return nil
}

// Step 3: ExtractStep asks the model for the statement's transactions.
type ExtractStep struct {
	Extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *ParseState) error {
	prompt := BuildPrompt(state.Categories, state.Now)
	raw, err := s.Extractor.Extract(ctx, state.Document, prompt)
	if err != nil {
		return err
	}
	state.RawOutput = raw
	return nil
}

// Step 4: ValidateStep decodes the model output and keeps the valid rows.
// Rejected rows are logged and skipped.
type ValidateStep struct{}

func (s *ValidateStep) Execute(ctx context.Context, state *ParseState) error {
	rows, err := ParseModelResponse(state.RawOutput)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	state.Results = ValidateRows(rows)
	for _, r := range state.Results {
		if !r.OK() {
			log.Warn().
				Int("row", r.Index).
				Str("reason", r.Reason).
				Msg("Dropping statement row")
		}
	}
	state.Candidates = Accepted(state.Results)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *ParseState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewParsePipeline creates the standard 4-step statement parsing pipeline.
func NewParsePipeline(blobs blob.Store, extractor Extractor) *Pipeline {
	return NewPipeline(
		&PersistUploadStep{Blobs: blobs},
		&ReadDocumentStep{Blobs: blobs},
		&ExtractStep{Extractor: extractor},
		&ValidateStep{},
	)
}

// Parser turns an uploaded statement into candidate rows.
type Parser struct {
	blobs    blob.Store
	pipeline *Pipeline
	now      func() time.Time
}

// NewParser returns a Parser that keeps uploads in blobs while extractor
// reads them.
func NewParser(blobs blob.Store, extractor Extractor) *Parser {
	return &Parser{
		blobs:    blobs,
		pipeline: NewParsePipeline(blobs, extractor),
		now:      time.Now,
	}
}

// Parse runs the parse pipeline on one upload. It never fails: any error
// is logged and yields an empty slice. The stored upload is deleted before
// Parse returns, whatever the outcome.
func (p *Parser) Parse(ctx context.Context, filename string, upload io.Reader, categories []string) []domain.Candidate {
	log := logger.FromContext(ctx).With().Str("filename", filename).Logger()

	state := &ParseState{
		Filename:   filename,
		Upload:     upload,
		Categories: categories,
		Now:        p.now(),
	}

	defer func() {
		if state.BlobKey == "" {
			return
		}
		if err := p.blobs.Delete(context.WithoutCancel(ctx), state.BlobKey); err != nil {
			log.Error().Err(err).Str("blob_key", state.BlobKey).Msg("Failed to delete upload")
		}
	}()

	if err := p.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Statement parsing failed")
		return []domain.Candidate{}
	}

	log.Info().
		Int("rows", len(state.Results)).
		Int("accepted", len(state.Candidates)).
		Msg("Statement parsed")
	return state.Candidates
}
