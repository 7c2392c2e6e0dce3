package notionsync

import (
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// TransactionToNotionProperties converts a ledger transaction to Notion
// properties. The database is expected to have: Description (title),
// Transaction ID, Date, Amount, Type, Account, Category, Notes, Imported At.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	description := domain.DefaultDescription
	if tx.Description != nil && *tx.Description != "" {
		description = *tx.Description
	}

	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: richText(description),
		},
		"Transaction ID": notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						tx.Date.Year,
						tx.Date.Month,
						tx.Date.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Type.Label(),
			},
		},
	}

	if tx.AccountName != "" {
		props["Account"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.AccountName,
			},
		}
	}

	if tx.CategoryName != nil && *tx.CategoryName != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: *tx.CategoryName,
			},
		}
	}

	if tx.Notes != nil {
		props["Notes"] = notionapi.RichTextProperty{
			RichText: richText(*tx.Notes),
		}
	}

	if !tx.CreatedAt.IsZero() {
		created := tx.CreatedAt
		props["Imported At"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&created),
			},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
