package httputil

import (
	"bufio"
	"bytes"
	"io"
)

// ProcessSSEStream reads server-sent events from io.Reader and invokes the
// callback for each 'data:' payload. It stops cleanly on the [DONE] sentinel
// used by OpenAI-compatible streams.
func ProcessSSEStream(r io.Reader, onData func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	// Upstream chunks can exceed the default scanner buffer on long completions.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	prefix := []byte("data: ")

	for scanner.Scan() {
		line := scanner.Bytes()

		// Skip empty keep-alive lines
		if len(line) == 0 {
			continue
		}

		// Stop if data is [DONE]
		if bytes.Equal(line, []byte("data: [DONE]")) {
			break
		}

		if bytes.HasPrefix(line, prefix) {
			payload := bytes.TrimPrefix(line, prefix)
			if err := onData(payload); err != nil {
				return err
			}
		}
	}

	return scanner.Err()
}
