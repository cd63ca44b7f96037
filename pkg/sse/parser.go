package sse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// MaxLineSize is the longest line the parser accepts.
const MaxLineSize = 1 << 20

// Parser reads frames from a text/event-stream body.
type Parser struct {
	scanner *bufio.Scanner

	eventType string
	id        string
	data      strings.Builder
	retry     time.Duration
	pending   bool
	hasData   bool
}

// NewParser creates a parser reading from r
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &Parser{scanner: scanner}
}

// Next returns the next frame. It returns io.EOF once the stream ends; an
// event that was not terminated by a blank line is discarded.
func (p *Parser) Next() (Frame, error) {
	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			if !p.pending {
				continue
			}
			// A block without any data line is not an event.
			if !p.hasData {
				p.flush()
				continue
			}
			return Frame{Kind: FrameEvent, Event: p.flush()}, nil
		}

		if strings.HasPrefix(line, ":") {
			return Frame{Kind: FrameComment, Comment: strings.TrimPrefix(line[1:], " ")}, nil
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		p.applyField(field, value)
	}

	if err := p.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("error reading SSE stream: %w", err)
	}
	return Frame{}, io.EOF
}

func (p *Parser) applyField(field, value string) {
	switch field {
	case "event":
		p.eventType = value
		p.pending = true
	case "data":
		if p.hasData {
			p.data.WriteByte('\n')
		}
		p.data.WriteString(value)
		p.hasData = true
		p.pending = true
	case "id":
		if strings.ContainsRune(value, 0) {
			return
		}
		p.id = value
		p.pending = true
	case "retry":
		ms, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return
		}
		p.retry = time.Duration(ms) * time.Millisecond
		p.pending = true
	}
	// Unknown fields are ignored.
}

func (p *Parser) flush() Event {
	event := Event{
		Type:  p.eventType,
		ID:    p.id,
		Data:  p.data.String(),
		Retry: p.retry,
	}
	if event.Type == "" {
		event.Type = DefaultEventType
	}

	p.eventType = ""
	p.id = ""
	p.data.Reset()
	p.retry = 0
	p.pending = false
	p.hasData = false
	return event
}
