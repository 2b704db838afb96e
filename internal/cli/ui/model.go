// Package ui implements the interactive terminal view of a merge run,
// built on Bubble Tea. It consumes the message types emitted by the
// internal/cli/hooks bridge.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/b-rodrigues/treemerge/internal/cli/hooks"
	"github.com/b-rodrigues/treemerge/pkg/merge"
)

const listHeightMargin = 4

// Model is the TUI state: the scrollable file list, the activity spinner,
// and the aggregated summary shown in the footer.
type Model struct {
	list        list.Model
	spinner     spinner.Model
	width       int
	height      int
	initialized bool

	// fileItems and itemMap are touched from hook messages; listLock
	// protects them.
	fileItems []listItem
	itemMap   map[string]int
	listLock  sync.Mutex

	summary      Summary
	phaseMessage string
	fatalError   string
	quitting     bool

	processTime   map[string]time.Time
	debounceTimer *time.Timer

	version string
}

// listItem is one row in the file list.
type listItem struct {
	path     string
	status   merge.Status
	message  string
	duration time.Duration
}

// Summary holds the footer statistics.
type Summary struct {
	EntriesScanned int
	PlannedCount   int
	MergedCount    int
	SkippedCount   int
	FailedCount    int
	ChunkCount     int
	StartTime      time.Time
}

// NewModel creates the initial TUI model. version appears in the header.
func NewModel(version string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		fileItems:    make([]listItem, 0, 1000),
		itemMap:      make(map[string]int),
		processTime:  make(map[string]time.Time),
		version:      version,
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key input, window resizes and hook messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var listCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		m.listLock.Lock()
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: merge.StatusPending})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.EntriesScanned++
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()
		if !m.quitting && (m.phaseMessage == "" || m.phaseMessage == "Initializing...") {
			m.phaseMessage = "Scanning..."
		}

	case hooks.MergePlannedMsg:
		m.summary.PlannedCount = msg.FileCount
		if !m.quitting {
			m.phaseMessage = "Merging..."
		}

	case hooks.FileStatusUpdateMsg:
		m.listLock.Lock()
		if idx, ok := m.itemMap[msg.Path]; ok && idx < len(m.fileItems) {
			item := &m.fileItems[idx]

			if isFinalStatus(msg.Status) && item.status == merge.StatusProcessing {
				if startTime, found := m.processTime[msg.Path]; found {
					item.duration = time.Since(startTime)
					delete(m.processTime, msg.Path)
				}
			} else if msg.Status == merge.StatusProcessing {
				m.processTime[msg.Path] = time.Now()
				item.duration = 0
			}

			if isFinalStatus(msg.Status) && !isFinalStatus(item.status) {
				m.incrementSummaryCount(msg.Status)
			}
			item.status = msg.Status
			item.message = msg.Message
			cmds = append(cmds, m.debounceListUpdate())
		} else {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: msg.Status, message: msg.Message, duration: msg.Duration})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.EntriesScanned++
			if isFinalStatus(msg.Status) {
				m.incrementSummaryCount(msg.Status)
			}
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

	case hooks.RunCompleteMsg:
		m.phaseMessage = "Complete"
		m.summary.MergedCount = msg.Report.Summary.MergedCount
		m.summary.SkippedCount = msg.Report.Summary.SkippedCount
		m.summary.ChunkCount = msg.Report.Summary.ChunkCount

	case UpdateListMsg:
		m.listLock.Lock()
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		m.listLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))
	}

	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the header, file list and summary footer.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := fmt.Sprintf("treemerge v%s", m.version)
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Merged: %d/%d | Skipped: %d | Failed: %d | Chunks: %d | Scanned: %d | Elapsed: %s",
		m.summary.MergedCount,
		m.summary.PlannedCount,
		m.summary.SkippedCount,
		m.summary.FailedCount,
		m.summary.ChunkCount,
		m.summary.EntriesScanned,
		elapsed,
	)
	footerRight := "q: quit"
	footerCenter := ""
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

func isFinalStatus(status merge.Status) bool {
	return status == merge.StatusMerged ||
		status == merge.StatusFailed ||
		status == merge.StatusSkipped
}

// incrementSummaryCount must be called with listLock held.
func (m *Model) incrementSummaryCount(status merge.Status) {
	switch status {
	case merge.StatusMerged:
		m.summary.MergedCount++
	case merge.StatusSkipped:
		m.summary.SkippedCount++
	case merge.StatusFailed:
		m.summary.FailedCount++
	}
}

// FilterValue implements list.Item.
func (i listItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i listItem) Title() string { return i.path }

// Description implements list.DefaultItem.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case merge.StatusMerged:
		statusStyle = StatusStyleMerged
		statusIcon = "✓"
	case merge.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case merge.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "S"
	case merge.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	default:
		statusStyle = StatusStylePending
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := ""
	switch i.status {
	case merge.StatusFailed:
		details = i.message
	case merge.StatusSkipped:
		// Messages arrive as "reason: details"; the reason is enough here.
		details = strings.TrimSpace(strings.SplitN(i.message, ":", 2)[0])
	case merge.StatusMerged:
		if i.duration > 0 {
			details = formatDuration(i.duration)
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// UpdateListMsg asks the list component to refresh its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate coalesces bursts of status changes into ~20 list
// refreshes per second. Must be called with listLock held.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.NewTimer(listUpdateDebounceDuration)
	return func() tea.Msg {
		<-m.debounceTimer.C
		return UpdateListMsg{}
	}
}

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusMerged     = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleMerged     = lipgloss.NewStyle().Foreground(ColorStatusMerged)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
