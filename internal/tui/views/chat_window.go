package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/classchat/classchat/internal/chat"
)

// ChatWindow displays the active conversation as a scrolling thread with
// date dividers between calendar days.
type ChatWindow struct {
	*tview.TextView
	selfRole chat.Role
}

// NewChatWindow creates the conversation view. selfRole is the signed-in
// user's role; messages sent by that role render as own messages.
func NewChatWindow(selfRole chat.Role) *ChatWindow {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Conversation ")

	return &ChatWindow{TextView: tv, selfRole: selfRole}
}

// SetContactName updates the title with the conversation partner's name.
func (cw *ChatWindow) SetContactName(name string) {
	cw.SetTitle(fmt.Sprintf(" %s ", name))
}

// Update re-renders the thread and scrolls to the newest message.
func (cw *ChatWindow) Update(msgs []chat.Message, contactName string) {
	cw.Clear()
	_, _ = fmt.Fprint(cw.TextView, buildThread(msgs, cw.selfRole, contactName))
	cw.ScrollToEnd()
}

// buildThread renders messages in sequence order, inserting a divider
// before the first message of each new calendar day. Sent/received is
// decided by the sender's role against selfRole: teachers only converse
// with students and vice versa, so the role identifies the side.
func buildThread(msgs []chat.Message, selfRole chat.Role, contactName string) string {
	var b strings.Builder
	for i, m := range msgs {
		if i == 0 || !sameDay(msgs[i-1].SentAt, m.SentAt) {
			fmt.Fprintf(&b, "[::d]── %s ──[-:-:-]\n\n", formatDayDivider(m.SentAt))
		}

		sender := contactName
		color := "aqua"
		if m.SentBy(selfRole) {
			sender = "You"
			color = "lime"
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n", color, tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(m.SentAt))

		if m.Attachment != nil {
			fmt.Fprintf(&b, "%s\n", attachmentLine(*m.Attachment))
		}
		if m.HasText() {
			fmt.Fprintf(&b, "%s\n", tview.Escape(sanitizeForTerminal(m.Content)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// attachmentLine renders an attachment marker by its classified kind.
func attachmentLine(a chat.Attachment) string {
	name := a.Name
	if name == "" {
		name = a.Path
	}
	var marker string
	switch chat.Classify(a) {
	case chat.KindImage:
		marker = "image"
	case chat.KindAudio:
		marker = "voice"
	case chat.KindVideo:
		marker = "video"
	case chat.KindPDF:
		marker = "pdf"
	default:
		marker = "file"
	}
	return fmt.Sprintf("[yellow][%s][-] %s", marker, tview.Escape(sanitizeForTerminal(name)))
}
