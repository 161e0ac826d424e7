// Package keys is a small keybinding registry with global and per-page
// scopes. Page bindings win over global ones.
package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings organized by scope.
type Registry struct {
	global map[string]*Action
	pages  map[string]map[string]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		global: make(map[string]*Action),
		pages:  make(map[string]map[string]*Action),
	}
}

// AddGlobal registers a keybinding active on every page.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global[name] = action
}

// AddPage registers a page-specific keybinding.
func (r *Registry) AddPage(page, name string, action *Action) {
	if r.pages[page] == nil {
		r.pages[page] = make(map[string]*Action)
	}
	r.pages[page][name] = action
}

// Hints returns visible keybinding descriptions for a page, sorted so the
// status bar does not reorder between redraws.
func (r *Registry) Hints(page string) []string {
	var hints []string
	for _, a := range r.global {
		if a.Visible {
			hints = append(hints, a.Description)
		}
	}
	for _, a := range r.pages[page] {
		if a.Visible {
			hints = append(hints, a.Description)
		}
	}
	sort.Strings(hints)
	return hints
}

// HandleEvent dispatches a key event to the matching action on the given
// page. Returns true if a handler matched.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, a := range r.pages[page] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
