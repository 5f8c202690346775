package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// InitLogger installs the text handler and sets the level from CRM_LOG (default info).
func InitLogger() {
	level, err := log.ParseLevel(strings.ToLower(os.Getenv("CRM_LOG")))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetHandler(NewTextHandler(os.Stderr))
	log.SetLevel(level)
}

// TextHandler writes one line per entry: timestamp, level initial, message, fields.
type TextHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextHandler returns a TextHandler writing to w.
func NewTextHandler(w io.Writer) *TextHandler {
	return &TextHandler{w: w}
}

// HandleLog implements log.Handler.
func (h *TextHandler) HandleLog(e *log.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", e.Timestamp.Format(time.DateTime), strings.ToUpper(e.Level.String()), e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
