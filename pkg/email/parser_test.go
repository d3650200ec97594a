package email

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: Jane Doe <jane@example.com>\r\n" +
	"To: bob@example.com, Carol <carol@example.com>\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Tue, 04 Mar 2025 10:15:00 +0000\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"\r\n" +
	"Please send me the report by Friday.\r\n"

func TestParsePlainMessage(t *testing.T) {
	email, err := NewParser().Parse(strings.NewReader(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", email.From)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, email.To)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Equal(t, "abc123@example.com", email.MessageID)
	assert.True(t, email.Date.Equal(time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)))
	assert.Contains(t, email.Body(), "Please send me the report by Friday.")
	assert.Equal(t, "Quarterly report", email.Headers["Subject"])
}

func TestParseMultipartPrefersPlainText(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"Subject: Mixed\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--inner\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>html version</p></body></html>\r\n" +
		"--inner--\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"JVBERi0xLjQK\r\n" +
		"--outer--\r\n"

	email, err := NewParser().Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Contains(t, email.TextBody, "plain version")
	assert.Contains(t, email.HTMLBody, "html version")
	assert.Contains(t, email.Body(), "plain version")
	assert.NotContains(t, email.Body(), "html version")

	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "report.pdf", email.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", email.Attachments[0].ContentType)
	assert.Equal(t, int64(9), email.Attachments[0].Size)
}

func TestParseHTMLOnlyFallsBackToHTML(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body>hello there</body></html>\r\n"

	email, err := NewParser().Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Empty(t, email.TextBody)
	assert.Contains(t, email.Body(), "<html>")
}

func TestParseDecodesTransferEncodingAndCharset(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"Subject: =?ISO-8859-1?Q?Caf=E9?=\r\n" +
		"Content-Type: text/plain; charset=ISO-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=E9 at noon\r\n"

	email, err := NewParser().Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Café", email.Subject)
	assert.Contains(t, email.TextBody, "Café at noon")
}

func TestParseMissingDate(t *testing.T) {
	raw := "From: jane@example.com\r\n\r\nbody\r\n"
	email, err := NewParser().Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, email.Date.IsZero())
}

func TestParseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.eml")
	require.NoError(t, os.WriteFile(path, []byte(plainMessage), 0644))

	email, err := NewParser().ParseFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", email.Subject)

	_, err = NewParser().ParseFromFile(filepath.Join(t.TempDir(), "missing.eml"))
	assert.Error(t, err)
}

func TestSplitMbox(t *testing.T) {
	mbox := "preamble that is not a message\n" +
		"From jane@example.com Tue Mar  4 10:15:00 2025\n" +
		"From: jane@example.com\n" +
		"Subject: one\n" +
		"\n" +
		"first body\n" +
		">From the start, quoted\n" +
		"\n" +
		"From jane@example.com Wed Mar  5 10:15:00 2025\n" +
		"From: jane@example.com\n" +
		"Subject: two\n" +
		"\n" +
		"second body\n"

	messages, err := SplitMbox(strings.NewReader(mbox))
	require.NoError(t, err)
	require.Len(t, messages, 2)

	first, err := NewParser().ParseBytes(messages[0])
	require.NoError(t, err)
	assert.Equal(t, "one", first.Subject)
	assert.Contains(t, first.Body(), "From the start, quoted")
	assert.NotContains(t, first.Body(), ">From")

	second, err := NewParser().ParseBytes(messages[1])
	require.NoError(t, err)
	assert.Equal(t, "two", second.Subject)
}

func TestSplitMboxEmpty(t *testing.T) {
	messages, err := SplitMbox(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, messages)
}
