package dashboard

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// HostChoice is one entry in the host picker.
type HostChoice struct {
	// Target is what gets passed on as the watch target.
	Target string
	// Detail describes where Target points.
	Detail string
	// Source is "vitals.yaml" or "ssh config".
	Source string
}

type hostItem struct{ host HostChoice }

func (i hostItem) Title() string { return i.host.Target }

func (i hostItem) Description() string {
	if i.host.Detail == "" {
		return i.host.Source
	}
	return i.host.Detail + " | " + i.host.Source
}

func (i hostItem) FilterValue() string {
	return strings.Join([]string{i.host.Target, i.host.Detail}, " ")
}

var pickerKeys = struct {
	Enter key.Binding
	Quit  key.Binding
}{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "watch"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// PickerModel is a Bubble Tea model for choosing a host to watch.
type PickerModel struct {
	list     list.Model
	selected *HostChoice
	quitting bool
}

// NewPickerModel creates a picker over hosts.
func NewPickerModel(hosts []HostChoice) PickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorAccent).
		BorderForeground(ColorGraph)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorTextMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Select a host to watch"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle.Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = MutedStyle

	return PickerModel{list: l}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = &item.host
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, pickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.NewStyle().Margin(1, 2).Render(m.list.View())
}

// Selected returns the chosen host, or nil if cancelled.
func (m PickerModel) Selected() *HostChoice { return m.selected }

// PickHost shows the picker and returns the chosen host, or nil if the user
// cancelled. A single host is returned without prompting.
func PickHost(hosts []HostChoice, in io.Reader, out io.Writer) (*HostChoice, error) {
	switch len(hosts) {
	case 0:
		return nil, errors.New(errors.ErrInvalidInput, "No hosts to pick from",
			"Pass a target like ops@web1, or add hosts to vitals.yaml or ~/.ssh/config.")
	case 1:
		return &hosts[0], nil
	}

	final, err := tea.NewProgram(NewPickerModel(hosts), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return nil, errors.Wrap(err, "Host picker failed")
	}
	if m, ok := final.(PickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}
