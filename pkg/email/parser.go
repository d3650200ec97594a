package email

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Email represents a parsed message reduced to what training needs
type Email struct {
	From      string
	To        []string
	Subject   string
	Date      time.Time // zero when the Date header is missing or unparsable
	MessageID string

	TextBody string // text/plain parts, joined
	HTMLBody string // text/html parts, joined

	Headers     map[string]string
	Attachments []Attachment
}

// Attachment represents an email attachment
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
}

// Body returns the plain text body, or the HTML body when the message has no
// plain text part.
func (e *Email) Body() string {
	if strings.TrimSpace(e.TextBody) != "" {
		return e.TextBody
	}
	return e.HTMLBody
}

// Parser decodes RFC 5322 messages, including MIME multipart, transfer
// encodings and non UTF-8 charsets.
type Parser struct{}

// NewParser creates a new email parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseFromFile parses an email from a file
func (p *Parser) ParseFromFile(filepath string) (*Email, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// ParseBytes parses an email held in memory
func (p *Parser) ParseBytes(data []byte) (*Email, error) {
	return p.Parse(bytes.NewReader(data))
}

// Parse parses an email from a reader
func (p *Parser) Parse(reader io.Reader) (*Email, error) {
	mr, err := mail.CreateReader(reader)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}
	defer mr.Close()

	email := &Email{
		Headers: make(map[string]string),
	}
	p.parseHeader(&mr.Header, email)

	if err := p.parseParts(mr, email); err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}
	return email, nil
}

func (p *Parser) parseHeader(h *mail.Header, email *Email) {
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
	} else {
		email.From = strings.TrimSpace(h.Get("From"))
	}

	if to, err := h.AddressList("To"); err == nil {
		for _, addr := range to {
			email.To = append(email.To, addr.Address)
		}
	} else if raw := h.Get("To"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			email.To = append(email.To, strings.TrimSpace(addr))
		}
	}

	if subject, err := h.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = h.Get("Subject")
	}

	if date, err := h.Date(); err == nil {
		email.Date = date
	}
	email.MessageID, _ = h.MessageID()

	fields := h.Fields()
	for fields.Next() {
		key := fields.Key()
		if prev, ok := email.Headers[key]; ok {
			email.Headers[key] = prev + "; " + fields.Value()
		} else {
			email.Headers[key] = fields.Value()
		}
	}
}

// parseParts walks every leaf part. Parts in unknown charsets or encodings
// are skipped rather than failing the message.
func (p *Parser) parseParts(mr *mail.Reader, email *Email) error {
	var text, html []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				continue
			}
			return err
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if !strings.HasPrefix(contentType, "text/") && contentType != "" {
				continue
			}
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if contentType == "text/html" {
				html = append(html, string(content))
			} else {
				text = append(text, string(content))
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			size, _ := io.Copy(io.Discard, part.Body)
			email.Attachments = append(email.Attachments, Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        size,
			})
		}
	}

	email.TextBody = strings.Join(text, "\n")
	email.HTMLBody = strings.Join(html, "\n")
	return nil
}
