package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes two-space indented JSON. Characters such as < > & in
// server messages are written as-is rather than as \u escapes.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
