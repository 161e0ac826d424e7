// Package composer drives message drafting and submission: plain text,
// file attachments and voice recordings. Submission is optimistic only by
// server response: nothing lands in the conversation until the server
// echoes the created message back.
package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/chat"
)

// State is the composer's recording/submission state. Only one submission
// or recording is in flight at a time.
type State string

const (
	Idle       State = "IDLE"
	Recording  State = "RECORDING"
	Submitting State = "SUBMITTING"
)

var (
	ErrNoActiveContact = errors.New("no active conversation")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrBusy            = errors.New("composer is busy")
	ErrNotRecording    = errors.New("not recording")
)

// Sender submits outgoing messages. Satisfied by *api.Client.
type Sender interface {
	SendText(ctx context.Context, out api.Outgoing) (chat.Message, error)
	SendFile(ctx context.Context, out api.Outgoing, filename, contentType string, r io.Reader) (chat.Message, error)
}

// Sink receives server-confirmed messages. Satisfied by *sync.Engine.
type Sink interface {
	IngestPush(msg chat.Message) error
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
}

// Composer holds the draft state for the active conversation.
type Composer struct {
	sender   Sender
	sink     Sink
	recorder Recorder
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	active     *chat.Contact
	recStarted time.Time
}

// New creates an idle composer.
func New(sender Sender, sink Sink, recorder Recorder, logger *zap.Logger) *Composer {
	return &Composer{
		sender:   sender,
		sink:     sink,
		recorder: recorder,
		logger:   logger,
		state:    Idle,
	}
}

// State returns the current composer state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetActiveContact switches the conversation drafts are addressed to. A
// recording in progress is discarded.
func (c *Composer) SetActiveContact(contact chat.Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Recording {
		_, _ = c.recorder.Stop()
		c.state = Idle
	}
	cp := contact
	c.active = &cp
}

// ActiveContact returns the contact drafts are addressed to, if any.
func (c *Composer) ActiveContact() (chat.Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return chat.Contact{}, false
	}
	return *c.active, true
}

// CanSend reports whether a new submission may start right now.
func (c *Composer) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Idle && c.active != nil
}

// RecordingElapsed returns how long the current recording has been running.
func (c *Composer) RecordingElapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return 0
	}
	return time.Since(c.recStarted)
}

// SendText trims and submits a text message to the active contact.
func (c *Composer) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	out, err := c.begin()
	if err != nil {
		return err
	}
	defer c.settle()

	out.Content = text
	msg, err := c.sender.SendText(ctx, out)
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return c.confirm(msg)
}

// SendFile submits the file at path as an attachment. The MIME type is
// sniffed from the file contents.
func (c *Composer) SendFile(ctx context.Context, path string) error {
	out, err := c.begin()
	if err != nil {
		return err
	}
	defer c.settle()

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	out.Content = chat.ContentFileAttachment
	msg, err := c.sender.SendFile(ctx, out, filepath.Base(path), mtype.String(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	return c.confirm(msg)
}

// StartRecording begins a voice recording. A microphone failure leaves the
// composer idle.
func (c *Composer) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return ErrNoActiveContact
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	if err := c.recorder.Start(ctx); err != nil {
		c.logger.Warn("microphone unavailable", zap.Error(err))
		return fmt.Errorf("start recording: %w", err)
	}

	c.mu.Lock()
	c.state = Recording
	c.recStarted = time.Now()
	c.mu.Unlock()
	return nil
}

// StopRecording finishes the recording and submits it as a voice message.
func (c *Composer) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	c.state = Submitting
	receiver := *c.active
	c.mu.Unlock()
	defer c.settle()

	data, err := c.recorder.Stop()
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}

	out := api.Outgoing{
		ReceiverID:   receiver.ID,
		ReceiverRole: receiver.Role,
		Content:      chat.ContentVoiceMessage,
	}
	mtype := mimetype.Detect(data)
	msg, err := c.sender.SendFile(ctx, out, "voice-message.mp3", mtype.String(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("send voice message: %w", err)
	}
	return c.confirm(msg)
}

// CancelRecording discards the recording without sending.
func (c *Composer) CancelRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return ErrNotRecording
	}
	_, _ = c.recorder.Stop()
	c.state = Idle
	return nil
}

// begin moves Idle -> Submitting and snapshots the receiver.
func (c *Composer) begin() (api.Outgoing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return api.Outgoing{}, ErrNoActiveContact
	}
	if c.state != Idle {
		return api.Outgoing{}, ErrBusy
	}
	c.state = Submitting
	return api.Outgoing{
		ReceiverID:   c.active.ID,
		ReceiverRole: c.active.Role,
	}, nil
}

func (c *Composer) settle() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
}

// confirm feeds the server echo into the conversation store.
func (c *Composer) confirm(msg chat.Message) error {
	if err := c.sink.IngestPush(msg); err != nil {
		return fmt.Errorf("record sent message: %w", err)
	}
	return nil
}
