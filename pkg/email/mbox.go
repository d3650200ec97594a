package email

import (
	"bufio"
	"bytes"
	"io"
)

const maxMboxLine = 1024 * 1024

// SplitMbox splits an mboxrd stream into raw messages. A line starting with
// "From " opens a new message; one level of ">From " quoting is removed.
func SplitMbox(r io.Reader) ([][]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMboxLine)

	var (
		messages [][]byte
		current  *bytes.Buffer
	)
	flush := func() {
		if current != nil && len(bytes.TrimSpace(current.Bytes())) > 0 {
			messages = append(messages, current.Bytes())
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.HasPrefix(line, []byte("From ")) {
			flush()
			current = &bytes.Buffer{}
			continue
		}
		if current == nil {
			// Content before the first separator is not a message.
			continue
		}
		if isQuotedFrom(line) {
			line = line[1:]
		}
		current.Write(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return messages, nil
}

func isQuotedFrom(line []byte) bool {
	trimmed := bytes.TrimLeft(line, ">")
	return len(trimmed) < len(line) && bytes.HasPrefix(trimmed, []byte("From "))
}
