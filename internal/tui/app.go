// Package tui is the terminal user interface: a contact list page, the
// conversation page and a history search page, updated live from bus
// events.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/composer"
	"github.com/classchat/classchat/internal/status"
	"github.com/classchat/classchat/internal/tui/keys"
	"github.com/classchat/classchat/internal/tui/model"
	"github.com/classchat/classchat/internal/tui/views"
)

// App is the main TUI application shell.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	vm          *model.ViewModel
	bus         *bus.Bus
	registry    *keys.Registry
	statusBar   *views.StatusBar
	contactList *views.ContactList
	chatWindow  *views.ChatWindow
	composerBar *views.ComposerBar
	searchView  *views.SearchView
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, b *bus.Bus, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		vm:          vm,
		bus:         b,
		registry:    keys.NewRegistry(),
		statusBar:   views.NewStatusBar(),
		contactList: views.NewContactList(),
		chatWindow:  views.NewChatWindow(vm.SelfRole()),
		composerBar: views.NewComposerBar(),
		searchView:  views.NewSearchView(),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.statusBar.SetHints(a.registry.Hints("contacts"))

	return a
}

// switchTo changes the front page and refreshes the hint line for it.
func (a *App) switchTo(page string) {
	a.pages.SwitchToPage(page)
	a.statusBar.SetHints(a.registry.Hints(page))
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal("search", &keys.Action{
		Rune: 's', Key: tcell.KeyRune,
		Description: "s:search", Visible: true,
		Handler: func() { a.showSearch() },
	})
	a.registry.AddPage("chat", "record", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:record", Visible: true,
		Handler: func() { a.toggleRecording() },
	})
}

func (a *App) setupCallbacks() {
	a.contactList.SetOnFilter(func(query string) {
		a.vm.SetSearchQuery(query)
		a.contactList.Update(a.vm.Contacts(), a.vm.Preview)
	})

	a.contactList.SetOnSelect(func(contactID string) {
		a.openConversation(contactID)
	})

	a.composerBar.SetOnSend(func(text string) {
		if path, ok := strings.CutPrefix(text, "/file "); ok {
			a.sendFile(strings.TrimSpace(path))
			return
		}
		a.sendText(text)
	})

	a.searchView.SetOnQuery(func(query string) {
		go func() {
			results, err := a.vm.SearchMessages(query)
			if err != nil {
				a.vm.Flash.Set("Search failed: "+err.Error(), 5*time.Second)
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchView.Update(results, a.vm.ContactName)
				a.app.SetFocus(a.searchView.Results())
			})
		}()
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.chatWindow, 0, 1, false).
		AddItem(a.composerBar, 1, 0, false)

	a.pages.AddPage("contacts", a.contactList, true, true)
	a.pages.AddPage("chat", chatFlex, true, false)
	a.pages.AddPage("search", a.searchView, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			// Escape first cancels a recording, then navigates back.
			if a.vm.Composer.State() == composer.Recording {
				_ = a.vm.Composer.CancelRecording()
				a.composerBar.SetRecording(false, 0)
				return nil
			}
			switch currentPage {
			case "chat", "search":
				a.switchTo("contacts")
				a.app.SetFocus(a.contactList.Table())
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer input, '/' the contact filter.
		if currentPage == "chat" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composerBar.Input())
			return nil
		}
		if currentPage == "contacts" && event.Key() == tcell.KeyRune && event.Rune() == '/' {
			a.app.SetFocus(a.contactList.SearchInput())
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

func (a *App) openConversation(contactID string) {
	go func() {
		if err := a.vm.OpenConversation(a.ctx, contactID); err != nil {
			a.vm.Flash.Set("Load failed: "+err.Error(), 5*time.Second)
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(a.vm.Flash.Get())
			})
			return
		}
		a.app.QueueUpdateDraw(func() {
			contact, _ := a.vm.ActiveContact()
			a.chatWindow.SetContactName(contact.DisplayName())
			a.chatWindow.Update(a.vm.ActiveConversation(), contact.DisplayName())
			a.switchTo("chat")
			a.app.SetFocus(a.composerBar.Input())
		})
	}()
}

func (a *App) sendText(text string) {
	go func() {
		if err := a.vm.Composer.SendText(a.ctx, text); err != nil {
			a.vm.Flash.Set("Send failed: "+err.Error(), 5*time.Second)
		}
		a.refreshChat()
	}()
}

func (a *App) sendFile(path string) {
	go func() {
		if err := a.vm.Composer.SendFile(a.ctx, path); err != nil {
			a.vm.Flash.Set("Attach failed: "+err.Error(), 5*time.Second)
		}
		a.refreshChat()
	}()
}

func (a *App) toggleRecording() {
	switch a.vm.Composer.State() {
	case composer.Idle:
		go func() {
			if err := a.vm.Composer.StartRecording(a.ctx); err != nil {
				a.vm.Flash.Set("Recording failed: "+err.Error(), 5*time.Second)
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(a.vm.Flash.Get())
				})
			}
		}()
	case composer.Recording:
		go func() {
			if err := a.vm.Composer.StopRecording(a.ctx); err != nil {
				a.vm.Flash.Set("Voice message failed: "+err.Error(), 5*time.Second)
			}
			a.refreshChat()
		}()
	}
}

func (a *App) refreshChat() {
	a.app.QueueUpdateDraw(func() {
		contact, ok := a.vm.ActiveContact()
		if ok {
			a.chatWindow.Update(a.vm.ActiveConversation(), contact.DisplayName())
		}
		a.composerBar.SetRecording(false, 0)
		a.statusBar.SetFlash(a.vm.Flash.Get())
	})
}

func (a *App) showSearch() {
	a.switchTo("search")
	a.app.SetFocus(a.searchView.Input())
}

// Run starts the TUI application and blocks until quit.
func (a *App) Run() error {
	go func() {
		if err := a.vm.LoadContacts(a.ctx); err != nil {
			a.vm.Flash.Set("Contacts failed: "+err.Error(), 5*time.Second)
		}
		a.app.QueueUpdateDraw(func() {
			a.contactList.Update(a.vm.Contacts(), a.vm.Preview)
			a.statusBar.SetFlash(a.vm.Flash.Get())
		})

		a.watchEvents()
		a.startTicker()
	}()

	return a.app.Run()
}

// watchEvents refreshes the UI on store and connection events.
func (a *App) watchEvents() {
	storeCh, unsubStore := a.bus.Subscribe("store.", 64)
	connCh, unsubConn := a.bus.Subscribe("conn.", 16)

	go func() {
		defer unsubStore()
		defer unsubConn()
		for {
			select {
			case evt := <-storeCh:
				contactID, _ := evt.Payload.(string)
				a.app.QueueUpdateDraw(func() {
					currentPage, _ := a.pages.GetFrontPage()
					if currentPage == "contacts" {
						a.contactList.Update(a.vm.Contacts(), a.vm.Preview)
					}
					if active, ok := a.vm.ActiveContact(); ok && active.ID == contactID {
						a.chatWindow.Update(a.vm.ActiveConversation(), active.DisplayName())
					}
				})
			case evt := <-connCh:
				change, ok := evt.Payload.(status.StatusChange)
				if !ok {
					continue
				}
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetStatus(string(change.To))
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// startTicker drives the clock, flash expiry and the recording timer.
func (a *App) startTicker() {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(a.vm.Flash.Get())
					recording := a.vm.Composer.State() == composer.Recording
					a.composerBar.SetRecording(recording, a.vm.Composer.RecordingElapsed())
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
