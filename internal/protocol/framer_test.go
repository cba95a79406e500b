package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader returns the configured chunks one Read at a time.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// splitAt cuts data at the given offsets.
func splitAt(data []byte, cuts ...int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, data[prev:c])
		prev = c
	}
	return append(chunks, data[prev:])
}

// collect drains a scanner into a slice, including the terminal sentinel.
func collect(t *testing.T, s *Scanner) []Message {
	t.Helper()
	var msgs []Message
	for {
		msg, ok := s.Next()
		if !ok {
			return msgs
		}
		msgs = append(msgs, msg)
		if len(msgs) > 1000 {
			t.Fatal("scanner did not terminate")
		}
	}
}

func equalMessages(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Text != b[i].Text || a[i].Command.Op != b[i].Command.Op {
			return false
		}
	}
	return true
}

func TestScanner_Sequence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Message
	}{
		{
			name:  "single line",
			input: "status=ok\n",
			want:  []Message{{Kind: KindText, Text: "status=ok"}, EndOfStream},
		},
		{
			name:  "trailing partial line emitted at end",
			input: "a\nb",
			want:  []Message{{Kind: KindText, Text: "a"}, {Kind: KindText, Text: "b"}, EndOfStream},
		},
		{
			name:  "bare request id",
			input: "\x01",
			want:  []Message{{Kind: KindCommand, Command: Command{Op: OpRequestID}}, EndOfStream},
		},
		{
			name:  "request id followed by terminator",
			input: "\x01\nhello\n",
			want: []Message{
				{Kind: KindCommand, Command: Command{Op: OpRequestID}},
				{Kind: KindText, Text: "hello"},
				EndOfStream,
			},
		},
		{
			name:  "request id at line start stands alone",
			input: "\x01status\n",
			want: []Message{
				{Kind: KindCommand, Command: Command{Op: OpRequestID}},
				{Kind: KindText, Text: "status"},
				EndOfStream,
			},
		},
		{
			name:  "request id mid-line is text",
			input: "a\x01b\n",
			want:  []Message{{Kind: KindText, Text: "a\x01b"}, EndOfStream},
		},
		{
			name:  "blank lines skipped",
			input: "\n\nx\n\n",
			want:  []Message{{Kind: KindText, Text: "x"}, EndOfStream},
		},
		{
			name:  "empty stream",
			input: "",
			want:  []Message{EndOfStream},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, NewScanner(strings.NewReader(tt.input), 0))
			if !equalMessages(got, tt.want) {
				t.Errorf("messages = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScanner_ReassemblyIndependence(t *testing.T) {
	stream := []byte("status=ok\n\x01temp=21.5\nvalve=open\n\x01\nlast")
	want := collect(t, NewScanner(strings.NewReader(string(stream)), 0))

	cases := [][]int{
		{1},
		{3, 4},
		{9, 10, 11},
		{10, 15, 20, 30},
		{len(stream) - 1},
	}
	for _, cuts := range cases {
		r := &chunkReader{chunks: splitAt(stream, cuts...)}
		got := collect(t, NewScanner(r, 0))
		if !equalMessages(got, want) {
			t.Errorf("cuts %v: messages = %+v, want %+v", cuts, got, want)
		}
	}

	// Every byte in its own read.
	got := collect(t, NewScanner(iotest.OneByteReader(strings.NewReader(string(stream))), 0))
	if !equalMessages(got, want) {
		t.Errorf("one-byte reads: messages = %+v, want %+v", got, want)
	}
}

func TestScanner_EndOfStreamOnce(t *testing.T) {
	s := NewScanner(strings.NewReader("x\n"), 0)
	collect(t, s)

	for i := 0; i < 3; i++ {
		if msg, ok := s.Next(); ok {
			t.Fatalf("Next() after end = %+v, true; want false", msg)
		}
	}
}

func TestScanner_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))
	s := NewScanner(r, 0)

	got := collect(t, s)
	if len(got) == 0 || !got[len(got)-1].IsEndOfStream() {
		t.Fatalf("messages = %+v, want trailing EndOfStream", got)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want %v", s.Err(), boom)
	}
}

func TestScanner_TooLong(t *testing.T) {
	s := NewScanner(strings.NewReader(strings.Repeat("x", 64)+"\n"), 16)

	got := collect(t, s)
	if len(got) != 1 || !got[0].IsEndOfStream() {
		t.Fatalf("messages = %+v, want only EndOfStream", got)
	}
	if !errors.Is(s.Err(), bufio.ErrTooLong) {
		t.Errorf("Err() = %v, want bufio.ErrTooLong", s.Err())
	}
}

func TestSplitMessages_RequestsMoreData(t *testing.T) {
	advance, token, err := SplitMessages([]byte("partial"), false)
	if advance != 0 || token != nil || err != nil {
		t.Errorf("SplitMessages(partial) = %d, %q, %v; want 0, nil, nil", advance, token, err)
	}
}
