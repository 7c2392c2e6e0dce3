package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/jomei/notionapi"
)

// Mirror copies ledger transactions into a Notion database. Pages are
// keyed by transaction ID; a transaction that already has a page is
// skipped.
type Mirror struct {
	client     NotionService
	databaseID string
}

// NewMirror returns a Mirror writing to databaseID.
func NewMirror(client NotionService, databaseID string) *Mirror {
	return &Mirror{client: client, databaseID: databaseID}
}

// SyncResult counts the outcome of a mirror run.
type SyncResult struct {
	Created int
	Skipped int
}

// Name implements pipeline.Hook.
func (m *Mirror) Name() string {
	return "notion"
}

// OnCommit implements pipeline.Hook.
func (m *Mirror) OnCommit(ctx context.Context, receipt pipeline.CommitReceipt) error {
	txs := make([]domain.Transaction, len(receipt.Transactions))
	copy(txs, receipt.Transactions)
	for i := range txs {
		if txs[i].AccountName == "" {
			txs[i].AccountName = receipt.AccountName
		}
	}

	_, err := m.Sync(ctx, txs, false)
	return err
}

// SyncTransactions mirrors every transaction of userID matching filter.
func (m *Mirror) SyncTransactions(ctx context.Context, ledger TransactionLister, userID string, filter domain.TransactionFilter, dryRun bool) (SyncResult, error) {
	txs, err := ledger.ListTransactions(ctx, userID, filter)
	if err != nil {
		return SyncResult{}, fmt.Errorf("SyncTransactions: list transactions: %w", err)
	}
	return m.Sync(ctx, txs, dryRun)
}

// Sync creates a page for every transaction in txs that has none yet. With
// dryRun nothing is written.
func (m *Mirror) Sync(ctx context.Context, txs []domain.Transaction, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)

	var result SyncResult
	if len(txs) == 0 {
		return result, nil
	}

	pages, err := queryAllNotionPages(ctx, m.client, m.databaseID)
	if err != nil {
		return result, fmt.Errorf("Sync: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractTransactionID(page); id != "" {
			existing[id] = true
		}
	}

	for _, tx := range txs {
		if existing[tx.ID] {
			result.Skipped++
			continue
		}
		if dryRun {
			log.Info().Str("transaction_id", tx.ID).Msg("Would create Notion page")
			result.Created++
			continue
		}
		if _, err := m.client.CreatePage(ctx, m.databaseID, TransactionToNotionProperties(tx)); err != nil {
			return result, fmt.Errorf("Sync: transaction %s: %w", tx.ID, err)
		}
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Bool("dry_run", dryRun).
		Msg("Notion sync completed")
	return result, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

var _ pipeline.Hook = (*Mirror)(nil)
