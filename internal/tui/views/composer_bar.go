package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ComposerBar is the message input line. While a voice recording runs it
// shows a red indicator with the elapsed time instead of the prompt.
type ComposerBar struct {
	*tview.Flex
	input     *tview.InputField
	indicator *tview.TextView
	onSend    func(text string)
}

// NewComposerBar creates the composer input bar.
func NewComposerBar() *ComposerBar {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	indicator := tview.NewTextView().
		SetDynamicColors(true)

	flex := tview.NewFlex().
		AddItem(input, 0, 1, true).
		AddItem(indicator, 12, 0, false)

	cb := &ComposerBar{
		Flex:      flex,
		input:     input,
		indicator: indicator,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && cb.onSend != nil {
			text := cb.input.GetText()
			if text != "" {
				cb.onSend(text)
				cb.input.SetText("")
			}
		}
	})

	return cb
}

// SetOnSend sets the callback when the user submits the input line.
func (cb *ComposerBar) SetOnSend(fn func(text string)) {
	cb.onSend = fn
}

// SetRecording toggles the recording indicator.
func (cb *ComposerBar) SetRecording(recording bool, elapsed time.Duration) {
	cb.indicator.Clear()
	if recording {
		_, _ = fmt.Fprintf(cb.indicator, "[red]● %s[-]", formatElapsed(elapsed))
	}
}

// Input returns the text input field.
func (cb *ComposerBar) Input() *tview.InputField {
	return cb.input
}
