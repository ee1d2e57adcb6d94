package export

import (
	"fmt"
)

// NewWriter creates a writer for the requested format.
func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatCSV:
		return &CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}
