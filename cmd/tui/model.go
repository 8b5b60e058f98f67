package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drive-gallery/gallery/internal/web/gallery/dto"
	"github.com/drive-gallery/gallery/internal/web/gallery/model"
	"github.com/drive-gallery/gallery/library/apiclient"
	"github.com/drive-gallery/gallery/library/pager"
)

// ViewState selects which screen the browser shows.
type ViewState int

const (
	// ViewFolders is the folder picker
	ViewFolders ViewState = iota
	// ViewFiles is the paged file listing of one folder
	ViewFiles
)

// folderItem adapts a catalog folder to the bubbles list widget.
type folderItem struct {
	id      string
	name    string
	created string
}

// Title returns the folder label (implements list.Item)
func (f folderItem) Title() string { return f.name }

// Description returns the creation date (implements list.Item)
func (f folderItem) Description() string { return f.created }

// FilterValue returns the value list filtering matches on (implements list.Item)
func (f folderItem) FilterValue() string { return f.name }

// fileSource feeds the pager. It is shared by reference so cycling the
// type filter takes effect on the next fetch without rebuilding the
// pager.
type fileSource struct {
	cli      *apiclient.Client
	folderID string
	filter   string
}

func (s *fileSource) fetch(ctx context.Context, cursor string, pageSize int) ([]model.File, string, error) {
	filter := s.filter
	if filter == dto.FilterAll {
		filter = ""
	}

	return s.cli.ListFiles(ctx, s.folderID, pageSize, cursor, filter)
}

type foldersMsg struct {
	folders []model.Folder
	err     error
}

type pageMsg struct {
	files []model.File
	err   error
}

// Model is the browser model following the Bubble Tea architecture.
type Model struct {
	cli      *apiclient.Client
	pageSize int

	state      ViewState
	folderList list.Model
	spinner    spinner.Model
	jumpInput  textinput.Model
	jumping    bool

	src *fileSource
	pg  *pager.Pager[model.File]

	folderName string
	files      []model.File
	loading    bool
	status     string
	err        error

	width  int
	height int

	quitting bool
}

// NewModel creates the browser over a gallery API client.
func NewModel(cli *apiclient.Client, pageSize int) Model {
	delegate := list.NewDefaultDelegate()
	folderList := list.New(nil, delegate, 0, 0)
	folderList.Title = "Gallery folders"
	folderList.SetShowStatusBar(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	jump := textinput.New()
	jump.Placeholder = "page"
	jump.CharLimit = 6
	jump.Width = 8

	return Model{
		cli:        cli,
		pageSize:   pageSize,
		state:      ViewFolders,
		folderList: folderList,
		spinner:    sp,
		jumpInput:  jump,
		loading:    true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadFolders())
}

func (m Model) loadFolders() tea.Cmd {
	cli := m.cli
	return func() tea.Msg {
		folders, err := cli.Folders(context.Background())
		return foldersMsg{folders: folders, err: err}
	}
}

func (m Model) loadNext() tea.Cmd {
	pg := m.pg
	return func() tea.Msg {
		files, err := pg.Next(context.Background())
		return pageMsg{files: files, err: err}
	}
}

func (m Model) loadPrevious() tea.Cmd {
	pg := m.pg
	return func() tea.Msg {
		files, err := pg.Previous(context.Background())
		return pageMsg{files: files, err: err}
	}
}

func (m Model) loadPage(n int) tea.Cmd {
	pg := m.pg
	return func() tea.Msg {
		files, err := pg.GoToPage(context.Background(), n)
		return pageMsg{files: files, err: err}
	}
}

// openFolder switches to the file view of one folder and starts a
// fresh cursor cache for it.
func (m *Model) openFolder(item folderItem) tea.Cmd {
	m.state = ViewFiles
	m.folderName = item.name
	m.src = &fileSource{cli: m.cli, folderID: item.id, filter: dto.FilterAll}
	m.pg = pager.New(m.src.fetch, m.pageSize,
		pager.WithInvalidCursor[model.File](apiclient.IsInvalidCursor))
	m.files = nil
	m.err = nil
	m.status = ""
	m.loading = true

	return tea.Batch(m.spinner.Tick, m.loadPage(1))
}

// cycleFilter rotates all -> image -> video. Cursors belong to one
// (folder, filter) combination, so the cache restarts from page 1.
func (m *Model) cycleFilter() tea.Cmd {
	switch m.src.filter {
	case dto.FilterAll:
		m.src.filter = dto.FilterImage
	case dto.FilterImage:
		m.src.filter = dto.FilterVideo
	default:
		m.src.filter = dto.FilterAll
	}

	m.pg.Reset()
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.loadPage(1))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.folderList.SetSize(msg.Width-2, msg.Height-4)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case foldersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		items := []list.Item{folderItem{id: "", name: "(root)", created: "unfiled uploads"}}
		for _, folder := range msg.folders {
			items = append(items, folderItem{
				id:      folder.ID,
				name:    folder.Name,
				created: folder.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return m, m.folderList.SetItems(items)

	case pageMsg:
		m.loading = false
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, pager.ErrNoNextPage):
				m.status = "already on the last page"
			case errors.Is(msg.err, pager.ErrNoPreviousPage):
				m.status = "already on the first page"
			default:
				m.err = msg.err
			}
			return m, nil
		}

		m.err = nil
		m.status = ""
		m.files = msg.files
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case ViewFolders:
		return m.handleFolderKey(msg)
	case ViewFiles:
		return m.handleFileKey(msg)
	}

	return m, nil
}

func (m Model) handleFolderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadFolders())

	case "enter":
		item, ok := m.folderList.SelectedItem().(folderItem)
		if !ok {
			return m, nil
		}
		cmd := m.openFolder(item)
		return m, cmd
	}

	var cmd tea.Cmd
	m.folderList, cmd = m.folderList.Update(msg)
	return m, cmd
}

func (m Model) handleFileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.jumping {
		switch msg.String() {
		case "enter":
			m.jumping = false
			raw := strings.TrimSpace(m.jumpInput.Value())
			m.jumpInput.Reset()
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				m.status = fmt.Sprintf("not a page number: %q", raw)
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadPage(n))

		case "esc":
			m.jumping = false
			m.jumpInput.Reset()
			return m, nil
		}

		var cmd tea.Cmd
		m.jumpInput, cmd = m.jumpInput.Update(msg)
		return m, cmd
	}

	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.state = ViewFolders
		m.pg = nil
		m.src = nil
		m.files = nil
		m.err = nil
		m.status = ""
		return m, nil

	case "n", "right", "l":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadNext())

	case "p", "left", "h":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadPrevious())

	case "g":
		if m.pg.Navigating() {
			m.status = "still walking to a page, hold on"
			return m, nil
		}
		m.jumping = true
		m.status = ""
		return m, m.jumpInput.Focus()

	case "f":
		cmd := m.cycleFilter()
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case ViewFiles:
		return m.viewFiles()
	default:
		return m.viewFolders()
	}
}

func (m Model) viewFolders() string {
	var b strings.Builder

	if m.loading {
		b.WriteString(titleStyle.Render("Gallery folders"))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " loading folders...")
	} else {
		b.WriteString(m.folderList.View())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter open · r reload · q quit"))

	return b.String()
}

func (m Model) viewFiles() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s · filter: %s", m.folderName, m.src.filter)))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " loading page...\n")
	case len(m.files) == 0:
		b.WriteString(fileStyle.Render("(no files)"))
		b.WriteString("\n")
	default:
		for _, f := range m.files {
			row := fmt.Sprintf("%-48s %-6s %s",
				truncate(f.Name, 48),
				categoryStyle.Render(f.Category),
				f.CreatedAt.Format("2006-01-02 15:04"))
			b.WriteString(fileStyle.Render(row))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	pages := fmt.Sprintf("~%d", m.pg.EstimatedPages())
	if last := m.pg.LastPage(); last > 0 {
		pages = strconv.Itoa(last)
	}
	b.WriteString(statusBarStyle.Render(
		fmt.Sprintf("page %d of %s", m.pg.CurrentPage(), pages)))

	if m.jumping {
		b.WriteString("\n")
		b.WriteString(inputLabelStyle.Render("go to page: "))
		b.WriteString(m.jumpInput.View())
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(m.status))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("n/p page · g jump · f filter · esc folders · q quit"))

	return b.String()
}

// truncate shortens s to at most n display runes, ellipsized. Slicing
// bytes would cut multi-byte names mid-rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// Run starts the interactive browser against the gallery API at
// baseURL.
func Run(baseURL string, pageSize int) error {
	m := NewModel(apiclient.New(baseURL), pageSize)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "run browser")
	}

	return nil
}
