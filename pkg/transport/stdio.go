package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

// StdioTransport implements Transport over newline-delimited JSON on a
// reader and a writer, normally the process stdin and stdout.
type StdioTransport struct {
	*BaseTransport
	reader         io.Reader
	writer         io.Writer
	rawWriter      *bufio.Writer
	errorHandler   ErrorHandler
	mutex          sync.Mutex // protects rawWriter and errorHandler
	maxConcurrency int
	maxMessageSize int
	done           chan struct{}
	stopOnce       sync.Once
}

// NewStdioTransport creates a stdio transport on the given streams.
func NewStdioTransport(reader io.Reader, writer io.Writer, logger logging.Logger) *StdioTransport {
	config := DefaultTransportConfig(TransportTypeStdio)
	config.StdioReader = reader
	config.StdioWriter = writer
	config.Logger = logger
	return newStdioTransport(config)
}

func newStdioTransport(config TransportConfig) *StdioTransport {
	reader := config.StdioReader
	writer := config.StdioWriter
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &StdioTransport{
		BaseTransport:  NewBaseTransport(logger.WithFields(logging.String("component", "stdio"))),
		reader:         reader,
		writer:         writer,
		rawWriter:      bufio.NewWriter(writer),
		maxConcurrency: config.MaxConcurrency,
		maxMessageSize: config.MaxMessageSize,
		done:           make(chan struct{}),
	}
}

// Initialize is a no-op: stdin and stdout are already open.
func (t *StdioTransport) Initialize(ctx context.Context) error {
	return nil
}

// Start reads messages until EOF, ctx cancellation or Stop. In-flight
// requests are waited for before Start returns, so their responses are
// written even when the input has already ended.
func (t *StdioTransport) Start(ctx context.Context) error {
	lines := make(chan inbound)
	readErr := make(chan error, 1)

	// The reader goroutine is not joined: a blocking read on os.Stdin cannot
	// be interrupted and is released when the process exits.
	go t.readLoop(lines, readErr)

	var work errgroup.Group
	work.SetLimit(t.maxConcurrency)

	for {
		select {
		case <-ctx.Done():
			t.closeReader()
			_ = work.Wait()
			return ctx.Err()
		case <-t.done:
			t.closeReader()
			_ = work.Wait()
			return nil
		case err := <-readErr:
			_ = work.Wait()
			if err != nil {
				return fmt.Errorf("stdio: read input: %w", err)
			}
			return nil
		case msg := <-lines:
			if msg.oversized {
				t.logger.Warn("Discarding oversized message", logging.Int("max_bytes", t.maxMessageSize))
				t.reply(errorResponse(nil, mcperrors.ParseError(fmt.Sprintf("message exceeds %d bytes", t.maxMessageSize))))
				continue
			}
			t.dispatch(ctx, &work, msg.data)
		}
	}
}

// inbound is one input line. An oversized line carries no data.
type inbound struct {
	data      []byte
	oversized bool
}

func (t *StdioTransport) readLoop(lines chan<- inbound, readErr chan<- error) {
	r := bufio.NewReaderSize(t.reader, 64*1024)

	for {
		line, oversized, err := readLine(r, t.maxMessageSize)
		msg := inbound{data: bytes.TrimSpace(line), oversized: oversized}
		if msg.oversized || len(msg.data) > 0 {
			select {
			case lines <- msg:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			readErr <- err
			return
		}
	}
}

// readLine returns the next line including its terminator. A line longer
// than limit bytes is read to its end and dropped, so the following line is
// still delivered.
func readLine(r *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		var frag []byte
		frag, err = r.ReadSlice('\n')
		switch {
		case oversized:
		case len(line)+len(frag) > limit:
			oversized, line = true, nil
		default:
			// ReadSlice data is only valid until the next read.
			line = append(line, frag...)
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, oversized, err
		}
	}
}

func (t *StdioTransport) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok && t.reader != os.Stdin {
		_ = closer.Close()
	}
}

// dispatch classifies one message. Requests are handed to the worker group,
// notifications are handled inline to keep their order.
func (t *StdioTransport) dispatch(ctx context.Context, work *errgroup.Group, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Panic in message processing",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			t.handleError(fmt.Errorf("panic processing message: %v", r))
		}
	}()

	if !json.Valid(data) {
		t.logger.Warn("Discarding malformed message", logging.Int("bytes", len(data)))
		t.reply(errorResponse(nil, mcperrors.ParseError("message is not valid JSON")))
		return
	}

	switch {
	case protocol.IsRequest(data):
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			t.reply(errorResponse(nil, mcperrors.InvalidRequest(err.Error())))
			return
		}
		work.Go(func() error {
			t.handleRequest(ctx, &req)
			return nil
		})

	case protocol.IsNotification(data):
		var notif protocol.Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			t.handleError(fmt.Errorf("error unmarshalling notification: %w", err))
			return
		}
		if err := t.HandleNotification(ctx, &notif); err != nil {
			// Notifications are fire-and-forget; unknown ones are expected.
			if errors.Is(err, ErrUnsupportedMethod) {
				t.logger.Debug("Ignoring notification", logging.String("method", notif.Method))
			} else {
				t.handleError(fmt.Errorf("error handling notification %s: %w", notif.Method, err))
			}
		}

	case protocol.IsResponse(data):
		// The server never sends requests, so there is nothing to correlate.
		t.logger.Debug("Ignoring unsolicited response")

	default:
		t.reply(errorResponse(requestID(data), mcperrors.InvalidRequest("not a JSON-RPC 2.0 request or notification")))
	}
}

func (t *StdioTransport) handleRequest(ctx context.Context, req *protocol.Request) {
	ctx = logging.ContextWithRequestID(ctx, fmt.Sprint(req.ID))
	t.reply(t.HandleRequest(ctx, req))
}

func (t *StdioTransport) reply(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		t.handleError(fmt.Errorf("error marshalling response for request %v: %w", resp.ID, err))
		return
	}
	if err := t.Send(data); err != nil {
		t.handleError(fmt.Errorf("error sending response for request %v: %w", resp.ID, err))
	}
}

// requestID extracts the id of a message that failed classification, so the
// error can still be correlated. Batches and ids of the wrong type give nil.
func requestID(data []byte) interface{} {
	var msg struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	switch msg.ID.(type) {
	case string, float64:
		return msg.ID
	default:
		return nil
	}
}

// Stop halts the transport and flushes pending output.
func (t *StdioTransport) Stop(ctx context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mutex.Lock()
		flushErr = t.rawWriter.Flush()
		t.errorHandler = nil
		t.mutex.Unlock()
	})

	if flushErr != nil {
		return fmt.Errorf("stdio: flush on stop: %w", flushErr)
	}
	return nil
}

// Send writes one message followed by a newline. Concurrent calls are
// serialized so lines never interleave.
func (t *StdioTransport) Send(data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, err := t.rawWriter.Write(data); err != nil {
		return fmt.Errorf("stdio: write message: %w", err)
	}
	if err := t.rawWriter.WriteByte('\n'); err != nil {
		return fmt.Errorf("stdio: write newline: %w", err)
	}
	if err := t.rawWriter.Flush(); err != nil {
		return fmt.Errorf("stdio: flush output: %w", err)
	}
	return nil
}

// SendNotification sends a notification (one-way message)
func (t *StdioTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	notification, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("error marshalling notification: %w", err)
	}
	return t.Send(data)
}

// SetErrorHandler sets the handler for transport errors.
func (t *StdioTransport) SetErrorHandler(handler ErrorHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.errorHandler = handler
}

func (t *StdioTransport) handleError(err error) {
	t.logger.WithError(err).Warn("Transport error")

	t.mutex.Lock()
	handler := t.errorHandler
	t.mutex.Unlock()

	if handler != nil {
		handler(err)
	}
}
