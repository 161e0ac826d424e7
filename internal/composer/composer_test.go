package composer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/chat"
)

type fakeSender struct {
	texts []api.Outgoing
	files []sentFile
	err   error
}

type sentFile struct {
	out      api.Outgoing
	filename string
	payload  []byte
}

func (f *fakeSender) SendText(_ context.Context, out api.Outgoing) (chat.Message, error) {
	if f.err != nil {
		return chat.Message{}, f.err
	}
	f.texts = append(f.texts, out)
	return chat.Message{
		ID:         "srv1",
		SenderID:   "u1",
		ReceiverID: out.ReceiverID,
		Content:    out.Content,
		SentAt:     time.Now(),
	}, nil
}

func (f *fakeSender) SendFile(_ context.Context, out api.Outgoing, filename, _ string, r io.Reader) (chat.Message, error) {
	if f.err != nil {
		return chat.Message{}, f.err
	}
	data, _ := io.ReadAll(r)
	f.files = append(f.files, sentFile{out: out, filename: filename, payload: data})
	return chat.Message{
		ID:         "srv2",
		SenderID:   "u1",
		ReceiverID: out.ReceiverID,
		Content:    out.Content,
		Attachment: &chat.Attachment{Path: "/uploads/x", Name: filename},
		SentAt:     time.Now(),
	}, nil
}

type fakeSink struct {
	msgs []chat.Message
}

func (f *fakeSink) IngestPush(m chat.Message) error {
	f.msgs = append(f.msgs, m)
	return nil
}

type fakeRecorder struct {
	startErr error
	data     []byte
	started  int
	stopped  int
}

func (f *fakeRecorder) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeRecorder) Stop() ([]byte, error) {
	f.stopped++
	return f.data, nil
}

func student(id string) chat.Contact {
	return chat.Contact{ID: id, FirstName: "Amina", LastName: "Taleb", Role: chat.RoleStudent}
}

func testComposer() (*Composer, *fakeSender, *fakeSink, *fakeRecorder) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	rec := &fakeRecorder{data: []byte("AUDIO")}
	return New(sender, sink, rec, zap.NewNop()), sender, sink, rec
}

func TestSendTextRequiresActiveContact(t *testing.T) {
	c, _, _, _ := testComposer()

	err := c.SendText(context.Background(), "hello")
	if !errors.Is(err, ErrNoActiveContact) {
		t.Errorf("error = %v, want ErrNoActiveContact", err)
	}
}

func TestSendTextTrimsAndRejectsEmpty(t *testing.T) {
	c, sender, _, _ := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.SendText(context.Background(), "   \n\t "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("whitespace-only error = %v, want ErrEmptyMessage", err)
	}

	if err := c.SendText(context.Background(), "  hello  "); err != nil {
		t.Fatal(err)
	}
	if len(sender.texts) != 1 || sender.texts[0].Content != "hello" {
		t.Errorf("sent = %+v, want trimmed hello", sender.texts)
	}
}

func TestSendTextConfirmedByServerEcho(t *testing.T) {
	c, _, sink, _ := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.SendText(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if len(sink.msgs) != 1 || sink.msgs[0].ID != "srv1" {
		t.Fatalf("sink = %+v, want server-assigned srv1", sink.msgs)
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE after send", c.State())
	}
}

func TestSendTextFailureLeavesConversationUntouched(t *testing.T) {
	c, sender, sink, _ := testComposer()
	c.SetActiveContact(student("c1"))
	sender.err = errors.New("server unreachable")

	if err := c.SendText(context.Background(), "hi"); err == nil {
		t.Fatal("expected send error")
	}
	if len(sink.msgs) != 0 {
		t.Errorf("sink = %d messages, want 0 on failure", len(sink.msgs))
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE after failure", c.State())
	}
}

func TestCanSendGating(t *testing.T) {
	c, _, _, _ := testComposer()

	if c.CanSend() {
		t.Error("CanSend() with no contact = true, want false")
	}
	c.SetActiveContact(student("c1"))
	if !c.CanSend() {
		t.Error("CanSend() idle with contact = false, want true")
	}
	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.CanSend() {
		t.Error("CanSend() while recording = true, want false")
	}
}

func TestVoiceRecordingFlow(t *testing.T) {
	c, sender, sink, rec := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.State() != Recording {
		t.Fatalf("state = %s, want RECORDING", c.State())
	}
	if c.RecordingElapsed() < 0 {
		t.Error("elapsed should be non-negative while recording")
	}

	if err := c.StopRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE after submit", c.State())
	}
	if rec.stopped != 1 {
		t.Errorf("recorder stopped %d times, want 1", rec.stopped)
	}
	if len(sender.files) != 1 {
		t.Fatalf("files sent = %d, want 1", len(sender.files))
	}
	f := sender.files[0]
	if f.filename != "voice-message.mp3" {
		t.Errorf("filename = %q, want voice-message.mp3", f.filename)
	}
	if f.out.Content != chat.ContentVoiceMessage {
		t.Errorf("content = %q, want voice placeholder", f.out.Content)
	}
	if string(f.payload) != "AUDIO" {
		t.Errorf("payload = %q, want AUDIO", f.payload)
	}
	if len(sink.msgs) != 1 {
		t.Errorf("sink = %d messages, want 1", len(sink.msgs))
	}
}

func TestStartRecordingMicDeniedStaysIdle(t *testing.T) {
	c, _, _, rec := testComposer()
	c.SetActiveContact(student("c1"))
	rec.startErr = errors.New("device busy")

	if err := c.StartRecording(context.Background()); err == nil {
		t.Fatal("expected mic error")
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE after mic failure", c.State())
	}
}

func TestStartRecordingGuards(t *testing.T) {
	c, _, _, _ := testComposer()

	if err := c.StartRecording(context.Background()); !errors.Is(err, ErrNoActiveContact) {
		t.Errorf("no contact error = %v, want ErrNoActiveContact", err)
	}

	c.SetActiveContact(student("c1"))
	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.StartRecording(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("double start error = %v, want ErrBusy", err)
	}
}

func TestStopWithoutRecording(t *testing.T) {
	c, _, _, _ := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.StopRecording(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Errorf("error = %v, want ErrNotRecording", err)
	}
	if err := c.CancelRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("cancel error = %v, want ErrNotRecording", err)
	}
}

func TestCancelRecordingDiscards(t *testing.T) {
	c, sender, sink, rec := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.CancelRecording(); err != nil {
		t.Fatal(err)
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE", c.State())
	}
	if rec.stopped != 1 {
		t.Errorf("recorder stopped %d times, want 1", rec.stopped)
	}
	if len(sender.files) != 0 || len(sink.msgs) != 0 {
		t.Error("cancelled recording must not send anything")
	}
}

func TestSwitchingContactDiscardsRecording(t *testing.T) {
	c, sender, _, rec := testComposer()
	c.SetActiveContact(student("c1"))

	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.SetActiveContact(student("c2"))

	if c.State() != Idle {
		t.Errorf("state = %s, want IDLE after contact switch", c.State())
	}
	if rec.stopped != 1 {
		t.Errorf("recorder stopped %d times, want 1", rec.stopped)
	}
	if len(sender.files) != 0 {
		t.Error("switching contacts must not send the recording")
	}
}

func TestSendFile(t *testing.T) {
	c, sender, sink, _ := testComposer()
	c.SetActiveContact(student("c1"))

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := c.SendFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if len(sender.files) != 1 {
		t.Fatalf("files sent = %d, want 1", len(sender.files))
	}
	f := sender.files[0]
	if f.filename != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", f.filename)
	}
	if f.out.Content != chat.ContentFileAttachment {
		t.Errorf("content = %q, want file placeholder", f.out.Content)
	}
	if len(sink.msgs) != 1 {
		t.Errorf("sink = %d messages, want 1", len(sink.msgs))
	}
}
