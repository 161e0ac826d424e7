package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/classchat/classchat/internal/chat"
)

// ContactList shows the filterable contact table with last-message
// previews. The search field narrows the list as the user types.
type ContactList struct {
	*tview.Flex
	search   *tview.InputField
	table    *tview.Table
	contacts []chat.Contact
	onSelect func(contactID string)
	onFilter func(query string)
}

// NewContactList creates the contact list view.
func NewContactList() *ContactList {
	search := tview.NewInputField().
		SetLabel(" Filter: ").
		SetFieldWidth(0)

	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Contacts ")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(search, 1, 0, false).
		AddItem(table, 0, 1, true)

	cl := &ContactList{
		Flex:   flex,
		search: search,
		table:  table,
	}

	search.SetChangedFunc(func(text string) {
		if cl.onFilter != nil {
			cl.onFilter(text)
		}
	})
	search.SetDoneFunc(func(key tcell.Key) {
		// Enter or Tab moves focus back to the table.
	})
	table.SetSelectedFunc(func(row, col int) {
		if id := cl.SelectedContact(); id != "" && cl.onSelect != nil {
			cl.onSelect(id)
		}
	})

	return cl
}

// SetOnSelect sets the callback when a contact is chosen.
func (cl *ContactList) SetOnSelect(fn func(contactID string)) {
	cl.onSelect = fn
}

// SetOnFilter sets the callback when the search text changes.
func (cl *ContactList) SetOnFilter(fn func(query string)) {
	cl.onFilter = fn
}

// Update refreshes the table. previewFn supplies the last-message line
// and timestamp per contact.
func (cl *ContactList) Update(contacts []chat.Contact, previewFn func(contactID string) (string, time.Time)) {
	cl.contacts = contacts
	cl.table.Clear()

	cl.table.SetCell(0, 0, tview.NewTableCell(" Name").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.table.SetCell(0, 1, tview.NewTableCell(" Role").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.table.SetCell(0, 2, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.table.SetCell(0, 3, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, c := range contacts {
		row := i + 1
		preview := ""
		var at time.Time
		if previewFn != nil {
			preview, at = previewFn(c.ID)
		}
		cl.table.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(c.DisplayName()))).SetMaxWidth(30).SetExpansion(1))
		cl.table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf(" %s", c.Role)).SetMaxWidth(10))
		cl.table.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetMaxWidth(40).SetExpansion(2))
		cl.table.SetCell(row, 3, tview.NewTableCell(" "+formatTimestamp(at)).SetMaxWidth(12))
	}
}

// SelectedContact returns the id of the currently selected contact.
func (cl *ContactList) SelectedContact() string {
	row, _ := cl.table.GetSelection()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.contacts) {
		return cl.contacts[idx].ID
	}
	return ""
}

// SearchInput returns the filter input field.
func (cl *ContactList) SearchInput() *tview.InputField {
	return cl.search
}

// Table returns the contact table.
func (cl *ContactList) Table() *tview.Table {
	return cl.table
}
