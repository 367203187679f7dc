package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/search"
)

const searchDebounce = 150 * time.Millisecond

type KeyHandler struct {
	app *App
}

func NewKeyHandler(app *App) *KeyHandler {
	return &KeyHandler{app: app}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if m, cmd, handled := kh.handleCustomKeys(key); handled {
		return m, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewJobs:
		return kh.app.jobList.SettingFilter()
	case ViewSearch:
		return kh.app.searchInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return kh.app, tea.Quit
	}

	// The list owns its filter prompt, including esc and enter.
	if kh.app.view == ViewJobs {
		var cmd tea.Cmd
		kh.app.jobList, cmd = kh.app.jobList.Update(msg)
		return kh.app, cmd
	}

	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "enter":
		if items := kh.app.searchList.Items(); len(items) > 0 {
			if i, ok := items[0].(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return kh.app, nil
	case "tab", "down":
		if len(kh.app.searchList.Items()) > 0 {
			kh.app.searchInput.Blur()
			kh.app.searchList.Select(0)
		}
		return kh.app, nil
	default:
		return kh.delegateToSearchInput(msg)
	}
}

// delegateToSearchInput updates the query and schedules a debounced search
// when it changed.
func (kh *KeyHandler) delegateToSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prev := sanitizeQuery(kh.app.searchInput.Value())
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)

	if sanitizeQuery(kh.app.searchInput.Value()) == prev {
		return kh.app, cmd
	}
	kh.app.searchSeq++
	seq := kh.app.searchSeq
	return kh.app, tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchDebounceFireMsg{seq: seq}
	}))
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		return kh.app, tea.Quit, true
	case "esc":
		if kh.app.view == ViewJobs && kh.app.jobList.FilterState() == list.FilterApplied {
			return kh.app, nil, false
		}
		m, cmd := kh.navigateBack()
		return m, cmd, true
	case "r":
		kh.app.refresh()
		return kh.app, nil, true
	case "ctrl+s", "s":
		if kh.app.view != ViewSearch {
			m, cmd := kh.enterSearchMode()
			return m, cmd, true
		}
	}

	switch kh.app.view {
	case ViewJobs:
		return kh.handleJobsCustomKeys(key)
	case ViewDetail:
		return kh.handleDetailCustomKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleJobsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "enter":
		if i, ok := kh.app.jobList.SelectedItem().(jobItem); ok {
			m, cmd := kh.openDetail(i.job, false)
			return m, cmd, true
		}
		return kh.app, nil, true
	case "o":
		return kh.app, kh.app.cycleSortOrder(), true
	case "a":
		if i, ok := kh.app.jobList.SelectedItem().(jobItem); ok {
			kh.app.setStatus(MsgOpeningLink, StatusInfo)
			return kh.app, kh.app.openLink(i.job), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleDetailCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == "a" && kh.app.current != nil {
		kh.app.setStatus(MsgOpeningLink, StatusInfo)
		return kh.app, kh.app.openLink(*kh.app.current), true
	}
	return kh.app, nil, false
}

// delegateToCharm lets the bubbles components handle navigation keys.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewJobs:
		kh.app.jobList, cmd = kh.app.jobList.Update(msg)
		return kh.app, cmd

	case ViewSearch:
		switch msg.String() {
		case "tab", "shift+tab", "/", "i":
			kh.app.searchInput.Focus()
			return kh.app, nil
		case "up":
			if kh.app.searchList.Index() == 0 {
				kh.app.searchInput.Focus()
				return kh.app, nil
			}
		case "enter":
			if i, ok := kh.app.searchList.SelectedItem().(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
			return kh.app, nil
		}
		kh.app.searchList, cmd = kh.app.searchList.Update(msg)
		return kh.app, cmd

	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) selectSearchResult(result searchResultItem) (tea.Model, tea.Cmd) {
	if result.result == nil || result.result.Job == nil {
		return kh.app, nil
	}
	return kh.openDetail(*result.result.Job, true)
}

func (kh *KeyHandler) openDetail(job model.Job, fromSearch bool) (tea.Model, tea.Cmd) {
	kh.app.current = &job
	kh.app.cameFromSearch = fromSearch
	kh.app.loadingJob = true
	kh.app.view = ViewDetail
	kh.app.setStatus(MsgLoadingJob, StatusInfo)
	return kh.app, kh.app.renderJob(job)
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewSearch:
		kh.app.view = kh.app.previousView
		kh.app.searchInput.Reset()
		kh.app.searchInput.Blur()
		kh.app.searchList.SetItems([]list.Item{})
		kh.app.clearStatus()
		return kh.app, nil

	case ViewDetail:
		kh.app.current = nil
		kh.app.loadingJob = false
		if kh.app.cameFromSearch {
			kh.app.view = ViewSearch
			kh.app.cameFromSearch = false
			kh.app.searchInput.Blur()
			return kh.app, nil
		}
		kh.app.view = ViewJobs
		return kh.app, nil

	default:
		return kh.app, tea.Quit
	}
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	if kh.app.view != ViewDetail {
		kh.app.previousView = kh.app.view
	} else {
		kh.app.previousView = ViewJobs
	}
	kh.app.view = ViewSearch
	kh.app.searchInput.Reset()
	kh.app.searchInput.Focus()
	kh.app.searchList.SetItems([]list.Item{})
	kh.app.searchSeq++

	engineName := "in-memory"
	if kh.app.searcher != nil {
		engineName = fmt.Sprintf("%T", kh.app.searcher)
	}
	if ds, ok := kh.app.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			kh.app.setStatus(fmt.Sprintf("Search: %s • idx: %d", engineName, n), StatusInfo)
			return kh.app, nil
		}
	}
	kh.app.setStatus("Search: "+engineName, StatusInfo)
	return kh.app, nil
}

// GetHelpForCurrentView returns our custom key hints; the list renders its
// own navigation help.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	switch kh.app.view {
	case ViewJobs:
		return []string{"r: refresh", "/: filter", "s: search", "o: sort", "a: apply"}
	case ViewDetail:
		return []string{"a: apply", "r: refresh", "esc: back"}
	case ViewSearch:
		return []string{"esc: back"}
	default:
		return []string{}
	}
}
