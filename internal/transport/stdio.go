package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/session"
)

// maxMessageSize bounds a single stdio message
const maxMessageSize = 16 * 1024 * 1024

// StdioTransport implements the STDIO transport for the MCP server. Every
// message is one line of JSON; nothing else is written to the output.
type StdioTransport struct {
	sessionManager *session.Manager
	handler        RequestHandler
	reader         io.Reader
	writer         io.Writer
	wg             sync.WaitGroup
}

// NewStdioTransport creates a new STDIO transport bound to os.Stdin and os.Stdout
func NewStdioTransport(sessionManager *session.Manager, handler RequestHandler) *StdioTransport {
	return NewStdioTransportWithIO(sessionManager, handler, os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a STDIO transport over the given streams
func NewStdioTransportWithIO(sessionManager *session.Manager, handler RequestHandler, r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		sessionManager: sessionManager,
		handler:        handler,
		reader:         r,
		writer:         w,
	}
}

// Serve reads requests until EOF or until ctx is cancelled. Requests are
// processed concurrently; responses are written one line at a time.
func (t *StdioTransport) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := t.sessionManager.CreateSession()
	defer t.sessionManager.RemoveSession(sess.ID)
	logger.Info("Created new STDIO session %s", sess.ID)

	out := bufio.NewWriter(t.writer)
	sess.Connect(ctx, func(event string, data []byte) error {
		if event != "message" {
			return nil
		}
		if _, err := out.Write(append(data, '\n')); err != nil {
			logger.Error("Error writing to stdout: %v", err)
			return err
		}
		return out.Flush()
	})

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go t.readLines(ctx, lines, readErr)

	for {
		select {
		case <-ctx.Done():
			t.wg.Wait()
			return nil
		case err := <-readErr:
			t.wg.Wait()
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			logger.Info("Received EOF on stdin, shutting down")
			return nil
		case line := <-lines:
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				if resp := process(ctx, t.handler, sess, line); resp != nil {
					if err := sess.SendEvent("message", resp); err != nil {
						logger.Error("Failed to send response: %v", err)
					}
				}
			}()
		}
	}
}

// readLines feeds non-empty lines to the serve loop and reports the terminal
// error, nil for EOF.
func (t *StdioTransport) readLines(ctx context.Context, lines chan<- []byte, readErr chan<- error) {
	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)
		select {
		case lines <- msg:
		case <-ctx.Done():
			return
		}
	}

	err := scanner.Err()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	readErr <- err
}
