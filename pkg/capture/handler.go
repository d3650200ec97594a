package capture

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/d--j/go-milter"
	"github.com/zpam/mailtype/pkg/config"
	"github.com/zpam/mailtype/pkg/tracker"
)

// Handler implements milter.Milter. It copies messages sent by the configured
// senders into the spool and never changes or rejects mail.
type Handler struct {
	milter.NoOpMilter
	senders []string
	spool   *Spool
	log     *log.Logger
	stats   *Stats

	// Message being captured in the current session
	capturing bool
	from      string
	rcpts     []string
	headers   []headerField
	hasDate   bool
	body      bytes.Buffer
}

type headerField struct {
	name  string
	value string
}

// Stats counts handler outcomes across all sessions.
type Stats struct {
	Seen     atomic.Uint64
	Captured atomic.Uint64
	Failed   atomic.Uint64

	Senders *tracker.SenderTracker // optional per-sender counts
}

// NewHandler creates a new milter handler
func NewHandler(cfg *config.CaptureConfig, spool *Spool, stats *Stats, logger *log.Logger) *Handler {
	return &Handler{
		senders: cfg.Senders,
		spool:   spool,
		log:     logger,
		stats:   stats,
	}
}

// MailFrom is called when MAIL FROM is received
func (h *Handler) MailFrom(from string, esmtpArgs string, m milter.Modifier) (*milter.Response, error) {
	h.reset()
	h.stats.Seen.Add(1)
	h.from = strings.Trim(strings.TrimSpace(from), "<>")

	if !config.IsSender(h.senders, h.from) {
		// Not the user's mail; skip the rest of this message.
		return milter.RespAccept, nil
	}
	h.capturing = true
	return milter.RespContinue, nil
}

// RcptTo is called for each RCPT TO
func (h *Handler) RcptTo(rcptTo string, esmtpArgs string, m milter.Modifier) (*milter.Response, error) {
	h.rcpts = append(h.rcpts, strings.Trim(rcptTo, "<>"))
	return milter.RespContinue, nil
}

// Header is called for each header
func (h *Handler) Header(name string, value string, m milter.Modifier) (*milter.Response, error) {
	if h.capturing {
		h.headers = append(h.headers, headerField{name: name, value: value})
		if strings.EqualFold(name, "Date") {
			h.hasDate = true
		}
	}
	return milter.RespContinue, nil
}

// BodyChunk is called for each body chunk
func (h *Handler) BodyChunk(chunk []byte, m milter.Modifier) (*milter.Response, error) {
	if h.capturing {
		h.body.Write(chunk)
	}
	return milter.RespContinue, nil
}

// EndOfMessage writes the captured message to the spool. Spool failures are
// logged; the message is still accepted.
func (h *Handler) EndOfMessage(m milter.Modifier) (*milter.Response, error) {
	defer h.reset()
	if !h.capturing {
		return milter.RespContinue, nil
	}

	path, err := h.spool.Write(h.message())
	if err != nil {
		h.stats.Failed.Add(1)
		h.log.Error("failed to spool message", "from", h.from, "err", err)
		return milter.RespContinue, nil
	}

	h.stats.Captured.Add(1)
	recent := 0
	if h.stats.Senders != nil {
		recent = h.stats.Senders.Track(h.from)
	}
	h.log.Info("captured message", "from", h.from, "rcpts", len(h.rcpts), "path", path, "recent", recent)
	return milter.RespContinue, nil
}

// Abort is called when the message is aborted
func (h *Handler) Abort(m milter.Modifier) error {
	h.reset()
	return nil
}

// message renders the captured headers and body as an RFC 5322 message.
func (h *Handler) message() []byte {
	var buf bytes.Buffer
	if !h.hasDate {
		fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	}
	for _, f := range h.headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", f.name, f.value)
	}
	buf.WriteString("\r\n")
	buf.Write(h.body.Bytes())
	return buf.Bytes()
}

func (h *Handler) reset() {
	h.capturing = false
	h.from = ""
	h.rcpts = nil
	h.headers = nil
	h.hasDate = false
	h.body.Reset()
}
