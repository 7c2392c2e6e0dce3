package pipeline

const (
	// DefaultModelName is the default Gemini model used for parsing.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultMIMEType is assumed for uploads without a recognised extension.
	DefaultMIMEType = "application/pdf"
)
