package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays the profile name, connection status, keybinding
// hints for the current page and flash notifications.
type StatusBar struct {
	*tview.TextView
	profile string
	status  string
	hints   []string
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetStatus updates the connection status display.
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
	sb.render()
}

// SetHints updates the keybinding hints shown for the current page.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	clock := time.Now().Format("15:04")
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s", sb.profile, sb.status, clock)
	if len(sb.hints) > 0 {
		line += fmt.Sprintf(" | [::d]%s[-:-:-]", strings.Join(sb.hints, " "))
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
