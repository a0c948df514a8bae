package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// CompactEnv switches JSON output to one line per document, for piping into
// line-oriented tools
const CompactEnv = "NOVO_JSON_COMPACT"

// MarshalJSON marshals v with two-space indentation, or compactly when
// NOVO_JSON_COMPACT is set
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv(CompactEnv) != "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// WriteJSON marshals v with MarshalJSON and writes it to w followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
