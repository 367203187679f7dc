package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/listing"
	"github.com/pders01/jobfeed/internal/media"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/repository"
	"github.com/pders01/jobfeed/internal/search"
)

const (
	searchLimit    = 50
	maxQueryLength = 256
)

// App is the bubbletea model for the job browser. It renders the
// repository's list and follows its events.
type App struct {
	ctx         context.Context
	repo        *repository.Repository
	searcher    search.Searcher
	launcher    *media.Launcher
	keyHandler  *KeyHandler
	events      <-chan repository.Event
	unsubscribe func()

	jobList     list.Model
	searchList  list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view           View
	previousView   View
	cameFromSearch bool
	jobs           []model.Job
	order          listing.SortOrder
	current        *model.Job
	loadingJob     bool
	fetching       bool
	status         string
	statusKind     StatusKind
	searchSeq      int
	visible        atomic.Bool

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

type Option func(*App)

// WithSearcher sets the full-text searcher. Without one the app scores the
// in-memory list directly.
func WithSearcher(s search.Searcher) Option {
	return func(a *App) { a.searcher = s }
}

func WithLauncher(l *media.Launcher) Option {
	return func(a *App) { a.launcher = l }
}

func WithSortOrder(order listing.SortOrder) Option {
	return func(a *App) { a.order = order }
}

func NewApp(ctx context.Context, repo *repository.Repository, opts ...Option) *App {
	jobList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	jobList.Title = "› jobs"
	jobList.SetShowStatusBar(true)
	jobList.SetFilteringEnabled(true)
	jobList.SetShowHelp(true)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› search results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search titles, organizations, details..."
	si.CharLimit = maxQueryLength

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(AccentColor)),
	)

	a := &App{
		ctx:         ctx,
		repo:        repo,
		jobList:     jobList,
		searchList:  searchList,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		view:        ViewJobs,
		order:       listing.DateDesc,
	}
	a.visible.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	if repo != nil {
		a.events, a.unsubscribe = repo.Subscribe()
	}
	a.keyHandler = NewKeyHandler(a)
	return a
}

// Visible reports whether the terminal has focus. It is safe to call from
// other goroutines and is meant as the AutoRefresh predicate.
func (a *App) Visible() bool {
	return a.visible.Load()
}

// Close stops following repository events.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 100 {
		wordWrapWidth = 100
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	if a.repo != nil && len(a.repo.Jobs()) == 0 {
		a.refresh()
	}
	return tea.Batch(a.loadJobs(), a.waitForEvent(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.jobList.SetSize(msg.Width, msg.Height-2)
		searchListHeight := msg.Height - 8
		if searchListHeight < 5 {
			searchListHeight = 5
		}
		a.searchList.SetSize(msg.Width, searchListHeight)
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 2

	case tea.FocusMsg:
		a.visible.Store(true)
		return a, nil

	case tea.BlurMsg:
		a.visible.Store(false)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case jobsLoadedMsg:
		cmds = append(cmds, a.setJobs(msg.jobs, true))

	case eventMsg:
		cmds = append(cmds, a.handleEvent(msg.event), a.waitForEvent())

	case eventsClosedMsg:
		a.events = nil
		a.fetching = false

	case jobRenderedMsg:
		if a.view == ViewDetail && a.current != nil && a.current.ID == msg.id {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingJob = false
			a.clearStatus()
		}

	case searchResultsMsg:
		if a.view == ViewSearch && msg.seq == a.searchSeq {
			items := make([]list.Item, len(msg.results))
			for i, r := range msg.results {
				items[i] = searchResultItem{result: r}
			}
			a.searchList.SetItems(items)
			if len(items) == 0 {
				a.setStatus(MsgNoResults, StatusInfo)
			} else {
				a.setStatus(MsgResultsCount(len(items)), StatusInfo)
			}
		}

	case searchDebounceFireMsg:
		if a.view == ViewSearch && msg.seq == a.searchSeq {
			if q := sanitizeQuery(a.searchInput.Value()); len(q) > 1 {
				cmds = append(cmds, a.performSearch(q, msg.seq))
			}
		}

	case indexedMsg:
		if msg.err != nil {
			debuglog.Warnf("reindexing search: %v", msg.err)
		}

	case linkOpenedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, media.ErrNoLink) {
				a.setStatus(MsgNoApplyLink, StatusWarn)
			} else {
				a.setStatus(msg.err.Error(), StatusError)
			}
		} else {
			a.clearStatus()
		}

	case errorMsg:
		a.setStatus(msg.err.Error(), StatusError)
	}

	// Non-key messages still drive async component work such as list
	// filter matching.
	switch a.view {
	case ViewJobs:
		var cmd tea.Cmd
		a.jobList, cmd = a.jobList.Update(msg)
		cmds = append(cmds, cmd)
	case ViewSearch:
		var cmd tea.Cmd
		a.searchList, cmd = a.searchList.Update(msg)
		cmds = append(cmds, cmd)
	case ViewDetail:
		if _, ok := msg.(tea.MouseMsg); ok {
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// handleEvent folds one repository event into the view.
func (a *App) handleEvent(evt repository.Event) tea.Cmd {
	switch evt.Type {
	case repository.EventLoaded:
		return a.setJobs(evt.Jobs, true)

	case repository.EventStarted:
		a.fetching = true
		a.setStatus(MsgRefreshing, StatusInfo)

	case repository.EventProgress:
		a.setStatus(MsgBatchProgress(evt.Batch, evt.Batches, evt.Count()), StatusInfo)
		return a.setJobs(evt.Jobs, false)

	case repository.EventSucceeded, repository.EventPartiallyFailed:
		a.fetching = false
		kind := StatusSuccess
		if evt.Type == repository.EventPartiallyFailed {
			kind = StatusWarn
		}
		a.setStatus(MsgRefreshSummary(evt.Count(), len(evt.Failures), a.docCount()), kind)
		return a.setJobs(evt.Jobs, true)

	case repository.EventFailed:
		a.fetching = false
		if errors.Is(evt.Err, context.Canceled) {
			a.clearStatus()
			return nil
		}
		a.setStatus(MsgFeedsFailed, StatusError)
	}
	return nil
}

// setJobs replaces the displayed list. Reindexing is skipped for partial
// lists published mid-cycle.
func (a *App) setJobs(jobs []model.Job, reindex bool) tea.Cmd {
	a.jobs = listing.Sort(jobs, a.order)
	items := make([]list.Item, len(a.jobs))
	for i, j := range a.jobs {
		items[i] = jobItem{job: j}
	}
	a.jobList.Title = "› jobs • " + string(a.order)

	cmds := []tea.Cmd{a.jobList.SetItems(items)}
	if reindex {
		cmds = append(cmds, a.reindex(a.jobs))
	}
	return tea.Batch(cmds...)
}

func (a *App) cycleSortOrder() tea.Cmd {
	next := listing.SortOrders[0]
	for i, o := range listing.SortOrders {
		if o == a.order {
			next = listing.SortOrders[(i+1)%len(listing.SortOrders)]
			break
		}
	}
	a.order = next
	a.setStatus(MsgSortOrder(next), StatusInfo)
	return a.setJobs(a.jobs, false)
}

// refresh starts a background cycle; its progress arrives as events.
func (a *App) refresh() {
	if a.repo == nil {
		a.setStatus(MsgRefreshClosed, StatusWarn)
		return
	}
	if !a.repo.Refresh(a.ctx) {
		if a.repo.State() == repository.Fetching {
			a.setStatus(MsgRefreshBusy, StatusWarn)
		} else {
			a.setStatus(MsgRefreshClosed, StatusWarn)
		}
		return
	}
	a.fetching = true
	a.setStatus(MsgRefreshing, StatusInfo)
}

func (a *App) docCount() int {
	if ds, ok := a.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			return n
		}
	}
	return -1
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 2

	switch a.view {
	case ViewJobs:
		if len(a.jobs) == 0 {
			content = renderCentered(a.width, bodyHeight, GetWelcomeMessage())
		} else {
			content = a.jobList.View()
		}

	case ViewDetail:
		if a.loadingJob {
			content = renderCentered(a.width, bodyHeight, renderMuted(MsgLoadingJob))
		} else {
			content = a.viewport.View()
		}

	case ViewSearch:
		inputWidth := a.width - 8
		if inputWidth < 10 {
			inputWidth = a.width - 4
		}
		a.searchInput.Width = inputWidth

		helpText := "Type to search • Tab/↓: results • Esc: back"
		if !a.searchInput.Focused() {
			helpText = "↑↓: navigate • Enter: open • Tab: search box • Esc: back"
		}

		content = lipgloss.NewStyle().
			Width(a.width).
			Height(bodyHeight).
			MaxHeight(bodyHeight).
			Render(lipgloss.JoinVertical(
				lipgloss.Top,
				renderHeader("› search", MsgJobsCount(len(a.jobs)), a.width),
				renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), inputWidth),
				HelpStyle.Render(helpText),
				"",
				a.searchList.View(),
			))
	}

	separatorWidth := a.width
	if separatorWidth < 1 {
		separatorWidth = 1
	}
	separator := SeparatorStyle.Render(strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) statusBar() string {
	var left string
	if a.fetching {
		left = a.spinner.View() + " "
	}
	if a.status != "" {
		left += renderStatus(a.status, a.statusKind)
	}

	help := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	line := joinNonEmpty("  ", left, renderMuted(help))
	return lipgloss.NewStyle().
		Width(a.width).
		MaxHeight(1).
		Padding(0, 1).
		Render(line)
}

type jobItem struct {
	job model.Job
}

func (i jobItem) Title() string {
	var badges string
	if i.job.Featured {
		badges += FeaturedBadgeStyle.Render("★ ")
	}
	if i.job.IsNew {
		badges += NewBadgeStyle.Render("● ")
	}
	return badges + i.job.Title
}

func (i jobItem) Description() string {
	posted := ""
	if t := i.job.PostedAt(); !t.IsZero() {
		posted = DateStyle.Render(t.Format("Jan 2"))
	}
	return joinNonEmpty(" • ",
		OrganizationStyle.Render(i.job.Organization),
		renderMuted(i.job.Location),
		renderMuted("Last date: "+i.job.ExpiryDate),
		posted,
	)
}

func (i jobItem) FilterValue() string {
	return i.job.Title + " " + i.job.Organization + " " + i.job.Category
}

type searchResultItem struct {
	result *search.Result
}

func (i searchResultItem) Title() string {
	if i.result.Job == nil {
		return i.result.JobID
	}
	return i.result.Job.Title
}

func (i searchResultItem) Description() string {
	if i.result.Job == nil {
		return ""
	}
	snippet := ""
	for _, m := range i.result.Matches {
		if m.Field != "title" && m.Text != "" {
			snippet = truncateEnd(m.Text, 60)
			break
		}
	}
	return joinNonEmpty(" • ",
		OrganizationStyle.Render(i.result.Job.Organization),
		renderMuted(snippet),
	)
}

func (i searchResultItem) FilterValue() string { return i.Title() }

type jobsLoadedMsg struct {
	jobs []model.Job
}

type eventMsg struct {
	event repository.Event
}

type eventsClosedMsg struct{}

type jobRenderedMsg struct {
	id      string
	content string
}

type searchResultsMsg struct {
	seq     int
	results []*search.Result
}

type searchDebounceFireMsg struct {
	seq int
}

type indexedMsg struct {
	err error
}

type linkOpenedMsg struct {
	err error
}

type errorMsg struct {
	err error
}
