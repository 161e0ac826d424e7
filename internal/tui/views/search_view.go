package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/classchat/classchat/internal/store"
)

// SearchView provides full-text search over cached message history.
type SearchView struct {
	*tview.Flex
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []store.SearchResult
}

// NewSearchView creates a new search view.
func NewSearchView() *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true).SetTitle(" Results ")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	return &SearchView{
		Flex:    flex,
		input:   input,
		results: results,
	}
}

// SetOnQuery sets the callback when a search query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
}

// Update refreshes search results. nameFn resolves contact ids to names.
func (sv *SearchView) Update(results []store.SearchResult, nameFn func(contactID string) string) {
	sv.data = results
	sv.results.Clear()

	headers := []string{" Contact", " Snippet", " Time"}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(tview.Styles.SecondaryTextColor))
	}

	for i, r := range results {
		row := i + 1
		name := r.Message.ContactID
		if nameFn != nil {
			name = nameFn(r.Message.ContactID)
		}
		ts := formatTimestamp(r.Message.Domain().SentAt)
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetMaxWidth(25))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.Snippet))).SetExpansion(1))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+ts).SetMaxWidth(12))
	}
}

// SelectedResult returns the contact id of the selected result.
func (sv *SearchView) SelectedResult() string {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx].Message.ContactID
	}
	return ""
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
