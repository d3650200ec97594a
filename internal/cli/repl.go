// Package cli implements the interactive suggestion prompt.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/corpus"
	"github.com/zpam/mailtype/pkg/predict"
)

// InputHandler reads lines from in and prints suggestions to out.
//
// Besides plain text it understands three commands: "q" quits, "num X"
// changes the number of suggestions and "debug" toggles printing the
// cleaned text and the context that was looked up.
type InputHandler struct {
	predictor *predict.Predictor
	in        *bufio.Reader
	out       io.Writer
	log       *log.Logger

	limit        int
	debug        bool
	requestCount int
}

// NewInputHandler creates a handler that starts with the predictor's
// default suggestion count.
func NewInputHandler(p *predict.Predictor, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		predictor: p,
		in:        bufio.NewReader(in),
		out:       out,
		log:       logger.New("cli"),
		limit:     p.K,
	}
}

// Start runs the prompt until "q" or end of input.
func (h *InputHandler) Start() error {
	fmt.Fprintln(h.out, "✉️  mailtype completion assistant ready!")
	fmt.Fprintln(h.out, "Enter 'q' to quit")
	fmt.Fprintln(h.out, "Enter 'num X' to change number of suggestions (e.g., 'num 10')")
	fmt.Fprintln(h.out, "Enter 'debug' to see cleaned input")
	fmt.Fprintln(h.out, "Otherwise, type some words to get suggestions")

	for {
		fmt.Fprint(h.out, "\n> ")
		line, err := h.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line != "" {
			if quit := h.handleInput(line); quit {
				return nil
			}
		}
		if eof {
			fmt.Fprintln(h.out)
			return nil
		}
	}
}

// handleInput processes one line and reports whether the user asked to quit.
func (h *InputHandler) handleInput(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case lower == "q":
		return true

	case lower == "debug":
		h.debug = !h.debug
		state := "off"
		if h.debug {
			state = "on"
		}
		fmt.Fprintf(h.out, "Debug mode: %s\n", state)
		return false

	case strings.HasPrefix(lower, "num "):
		n, err := strconv.Atoi(strings.TrimSpace(line[len("num "):]))
		if err != nil || n <= 0 {
			fmt.Fprintln(h.out, "Invalid number format")
			return false
		}
		h.limit = n
		fmt.Fprintf(h.out, "Number of suggestions set to %d\n", n)
		return false
	}

	h.suggest(line)
	return false
}

func (h *InputHandler) suggest(text string) {
	h.requestCount++
	order := h.predictor.Model.Order()

	if h.debug {
		fmt.Fprintf(h.out, "Original text: %s\n", text)
		fmt.Fprintf(h.out, "Cleaned text: %s\n", corpus.NormalizeText(text))
		if window, ok := predict.ContextFromText(text, order); ok {
			fmt.Fprintf(h.out, "Context used: %s\n", formatContext(window))
		}
	}

	start := time.Now()
	res, err := h.predictor.Predict(text, h.limit)
	h.log.Debug("suggest", "request", h.requestCount, "took", time.Since(start))

	switch {
	case errors.Is(err, predict.ErrInsufficientContext):
		fmt.Fprintf(h.out, "Please enter at least %d words\n", order-1)
	case err != nil:
		fmt.Fprintf(h.out, "❌ %v\n", err)
	case res.Status == predict.StatusUnknownContext:
		fmt.Fprintf(h.out, "No suggestions found for context: %s\n", strings.Join(res.Context, " "))
	default:
		fmt.Fprintf(h.out, "Suggestions: %s\n", strings.Join(res.Words, ", "))
	}
}

func formatContext(window []string) string {
	quoted := make([]string, len(window))
	for i, w := range window {
		quoted[i] = strconv.Quote(w)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
