package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const transactionsTable = "transactions"

// inserter is the part of *bigquery.Inserter the exporter uses.
type inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Exporter mirrors committed imports into a BigQuery table for analysis.
// The ledger stays the source of truth; the table is append-only.
type Exporter struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter inserter
}

// NewExporter opens a BigQuery client for projectID and targets
// datasetID.transactions. With an empty credentialsFile the client uses
// Application Default Credentials.
func NewExporter(ctx context.Context, projectID, datasetID, credentialsFile string) (*Exporter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}

	// Use fully qualified table name to avoid project ID issues
	table := client.DatasetInProject(projectID, datasetID).Table(transactionsTable)
	return &Exporter{client: client, table: table, inserter: table.Inserter()}, nil
}

// EnsureTable creates the transactions table, partitioned by transaction
// date, unless it already exists.
func (e *Exporter) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}

	md := &bigquery.TableMetadata{
		Name:             "Ledger transactions",
		Description:      "Committed statement imports, one row per transaction",
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "transaction_date"},
		Clustering:       &bigquery.Clustering{Fields: []string{"user_id", "account_id"}},
	}

	if err := e.table.Create(ctx, md); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("EnsureTable: create table: %w", err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Name implements pipeline.Hook.
func (e *Exporter) Name() string {
	return "bigquery"
}

// OnCommit implements pipeline.Hook. It streams one row per committed
// transaction.
func (e *Exporter) OnCommit(ctx context.Context, receipt pipeline.CommitReceipt) error {
	rows := RowsFromReceipt(receipt)
	if len(rows) == 0 {
		return nil
	}
	if err := e.inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("OnCommit: inserting rows: %w", err)
	}
	return nil
}

// RowsFromReceipt maps a committed import to analytics rows.
func RowsFromReceipt(receipt pipeline.CommitReceipt) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(receipt.Transactions))
	for _, tx := range receipt.Transactions {
		row := &TransactionRow{
			TransactionID:   tx.ID,
			BatchID:         receipt.BatchID,
			UserID:          receipt.UserID,
			AccountID:       tx.AccountID,
			AccountName:     receipt.AccountName,
			TransactionDate: tx.Date,
			Amount:          tx.Amount.Rat(),
			Direction:       string(tx.Type),
			Fingerprint:     tx.Fingerprint,
			SourceFilename:  receipt.Filename,
			CreatedTS:       tx.CreatedAt,
			CommittedTS:     receipt.CommittedAt,
		}
		if tx.Description != nil {
			row.Description = bigquery.NullString{StringVal: *tx.Description, Valid: true}
		}
		if tx.CategoryName != nil {
			row.CategoryName = bigquery.NullString{StringVal: *tx.CategoryName, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

var _ pipeline.Hook = (*Exporter)(nil)
