package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
)

// DetectMIMEType maps an upload's extension to the MIME type sent to the
// model. Anything that is not a JPEG or PNG is treated as a PDF.
func DetectMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return DefaultMIMEType
	}
}

// BuildPrompt returns the extraction instructions for one statement. The
// user's categories are listed by number so the model can copy a name
// verbatim; now supplies the year for statements that omit it.
func BuildPrompt(categories []string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are a bank statement parser.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract EVERY transaction in the attached statement.\n")
	b.WriteString("- Ignore daily balances and running totals.\n\n")

	b.WriteString("Assign each transaction to ONE of these existing categories:\n")
	if len(categories) == 0 {
		b.WriteString("(none)\n")
	}
	for i, name := range categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. If a transaction clearly fits a category above, use its name EXACTLY as written.\n")
	fmt.Fprintf(&b, "2. If you are unsure or nothing fits, use the category %q.\n", domain.FallbackCategoryName)
	fmt.Fprintf(&b, "3. Dates must be \"YYYY-MM-DD\". If the year is not shown, assume %d.\n", now.Year())
	b.WriteString("4. \"amount\" is a positive number (e.g. 20.50), never negative.\n")
	b.WriteString("5. \"type\" is \"expense\" for money out and \"income\" for money in.\n")
	b.WriteString("6. \"description\" is the merchant or payee with codes and extra text removed.\n\n")

	b.WriteString("Return ONLY a JSON array, no Markdown, in this format:\n")
	b.WriteString("[\n")
	b.WriteString("  {\n")
	b.WriteString("    \"date\": \"YYYY-MM-DD\",\n")
	b.WriteString("    \"description\": \"clean text\",\n")
	b.WriteString("    \"amount\": 0.00,\n")
	b.WriteString("    \"type\": \"expense\",\n")
	fmt.Fprintf(&b, "    \"category\": \"exact category name or %s\"\n", domain.FallbackCategoryName)
	b.WriteString("  }\n")
	b.WriteString("]\n")

	return b.String()
}
