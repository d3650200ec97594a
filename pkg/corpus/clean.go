// Package corpus turns a person's sent mail into the token stream the n-gram
// trainer consumes.
package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	signatureRe = regexp.MustCompile(`(?s)--\s*\n.*`)
	urlRe       = regexp.MustCompile(`http\S+|www.\S+`)
	emailAddrRe = regexp.MustCompile(`\S+@\S+`)
	nonAlphaRe  = regexp.MustCompile(`[^a-zA-Z\s]`)
)

var forwardHeaderRe = []*regexp.Regexp{
	regexp.MustCompile(`From:.*?\n`),
	regexp.MustCompile(`Sent:.*?\n`),
	regexp.MustCompile(`To:.*?\n`),
	regexp.MustCompile(`Subject:.*?\n`),
}

// CleanMessage reduces a message body to normalized prose: HTML is flattened,
// the signature and quoted forward headers are dropped, URLs and addresses
// are removed, and the rest goes through NormalizeText.
func CleanMessage(text string) string {
	if strings.Contains(strings.ToLower(text), "<html") {
		text = HTMLToText(text)
	}

	text = signatureRe.ReplaceAllString(text, "")
	// One pass per header name, in this order: "To: x From: y\n" loses only
	// the From part.
	for _, re := range forwardHeaderRe {
		text = re.ReplaceAllString(text, "")
	}
	text = urlRe.ReplaceAllString(text, "")
	text = emailAddrRe.ReplaceAllString(text, "")

	return NormalizeText(text)
}

// NormalizeText keeps ASCII letters and whitespace, lowercases, and collapses
// runs of whitespace to single spaces. Training and inference both use it.
func NormalizeText(text string) string {
	text = nonAlphaRe.ReplaceAllString(text, "")
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

// Tokenize splits normalized text into tokens. It never returns empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// HTMLToText returns the visible text of an HTML document with text nodes
// separated by spaces. Script and style content is skipped. Input that does
// not parse is returned unchanged.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, n.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}
