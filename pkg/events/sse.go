package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// lineBreakReplacer strips CR/LF from values embedded into SSE fields so a
// payload cannot break the frame structure.
var lineBreakReplacer = strings.NewReplacer("\r", "", "\n", "")

// WriteSSEJSON writes one `data: <json>` frame.
func WriteSSEJSON(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling SSE payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", lineBreakReplacer.Replace(string(data)))
	return err
}

// WriteSSEDone writes the terminating `data: [DONE]` frame.
func WriteSSEDone(w io.Writer) error {
	_, err := io.WriteString(w, "data: [DONE]\n\n")
	return err
}
