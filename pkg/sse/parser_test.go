package sse

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) []Frame {
	t.Helper()

	parser := NewParser(strings.NewReader(input))
	var frames []Frame
	for {
		frame, err := parser.Next()
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
}

func TestParser_Next(t *testing.T) {
	t.Run("parses_handshake_event", func(t *testing.T) {
		frames := readAll(t, "id:abc123\nevent:PB_CONNECT\ndata:{\"clientId\":\"abc123\"}\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, FrameEvent, frames[0].Kind)
		assert.Equal(t, "PB_CONNECT", frames[0].Event.Type)
		assert.Equal(t, "abc123", frames[0].Event.ID)
		assert.Equal(t, `{"clientId":"abc123"}`, frames[0].Event.Data)
	})

	t.Run("strips_single_leading_space", func(t *testing.T) {
		frames := readAll(t, "event: users\ndata:  padded\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, "users", frames[0].Event.Type)
		assert.Equal(t, " padded", frames[0].Event.Data)
	})

	t.Run("joins_multiline_data", func(t *testing.T) {
		frames := readAll(t, "data: first\ndata: second\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, "first\nsecond", frames[0].Event.Data)
		assert.Equal(t, DefaultEventType, frames[0].Event.Type)
	})

	t.Run("emits_comments", func(t *testing.T) {
		frames := readAll(t, ": ping\n\ndata: x\n\n")

		require.Len(t, frames, 2)
		assert.True(t, frames[0].IsComment())
		assert.Equal(t, "ping", frames[0].Comment)
		assert.Equal(t, "x", frames[1].Event.Data)
	})

	t.Run("handles_crlf_line_endings", func(t *testing.T) {
		frames := readAll(t, "event: posts\r\ndata: y\r\n\r\n")

		require.Len(t, frames, 1)
		assert.Equal(t, "posts", frames[0].Event.Type)
		assert.Equal(t, "y", frames[0].Event.Data)
	})

	t.Run("parses_retry_and_ignores_unknown_fields", func(t *testing.T) {
		frames := readAll(t, "retry: 1500\nfoo: bar\ndata: z\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, 1500*time.Millisecond, frames[0].Event.Retry)
		assert.Equal(t, "z", frames[0].Event.Data)
	})

	t.Run("ignores_id_with_nul", func(t *testing.T) {
		frames := readAll(t, "id: a\x00b\ndata: z\n\n")

		require.Len(t, frames, 1)
		assert.Empty(t, frames[0].Event.ID)
	})

	t.Run("discards_unterminated_event", func(t *testing.T) {
		frames := readAll(t, "data: complete\n\ndata: partial\n")

		require.Len(t, frames, 1)
		assert.Equal(t, "complete", frames[0].Event.Data)
	})

	t.Run("skips_blank_lines_between_events", func(t *testing.T) {
		frames := readAll(t, "\n\n\ndata: only\n\n\n")

		require.Len(t, frames, 1)
	})

	t.Run("drops_block_without_data", func(t *testing.T) {
		frames := readAll(t, "id: 7\nevent: users\n\nretry: 10\n\ndata: y\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, DefaultEventType, frames[0].Event.Type)
		assert.Empty(t, frames[0].Event.ID)
		assert.Equal(t, "y", frames[0].Event.Data)
	})

	t.Run("empty_data_line_is_an_event", func(t *testing.T) {
		frames := readAll(t, "event: users\ndata:\n\n")

		require.Len(t, frames, 1)
		assert.Equal(t, "users", frames[0].Event.Type)
		assert.Empty(t, frames[0].Event.Data)
	})

	t.Run("resets_fields_between_events", func(t *testing.T) {
		frames := readAll(t, "event: a\nid: 1\ndata: one\n\ndata: two\n\n")

		require.Len(t, frames, 2)
		assert.Equal(t, DefaultEventType, frames[1].Event.Type)
		assert.Empty(t, frames[1].Event.ID)
	})
}
