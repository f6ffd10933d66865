package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"

	"insncorpus/internal/classify"
	"insncorpus/internal/corpus"
	"insncorpus/internal/insncorpus/styles"
	"insncorpus/internal/isa"
)

type browseView int

const (
	viewRecords browseView = iota
	viewDetail
)

type recordItem struct {
	rec classify.Record
}

func (i recordItem) FilterValue() string { return i.rec.Mnemonic }

type recordDelegate struct{}

func (d recordDelegate) Height() int                               { return 1 }
func (d recordDelegate) Spacing() int                              { return 0 }
func (d recordDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d recordDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(recordItem)
	if !ok {
		return
	}
	indicator, opStyle := " ", styles.Muted
	if index == m.Index() {
		indicator, opStyle = ">", styles.Selected
	}
	note := ""
	if i.rec.Outcome == classify.Built && !i.rec.Printable {
		note = styles.Muted.Render("  not printable")
	}
	fmt.Fprintf(w, " %s %s  %s  %s%s",
		indicator,
		opStyle.Render(fmt.Sprintf("%5d", i.rec.Opcode)),
		styles.Mnemonic.Render(fmt.Sprintf("%-24s", i.rec.Mnemonic)),
		styles.Outcome(i.rec.Outcome).Render(i.rec.Outcome.String()),
		note)
}

type profileMsg struct {
	profile *isa.Profile
	records []classify.Record
	err     error
}

func loadProfileCmd(prov corpus.Provider, arch string) tea.Cmd {
	return func() tea.Msg {
		p, err := prov.Profile(arch)
		if err != nil {
			return profileMsg{err: err}
		}
		return profileMsg{profile: p, records: classify.All(p)}
	}
}

// browser is the interactive classification browser.
type browser struct {
	arch     string
	provider corpus.Provider
	profile  *isa.Profile
	records  list.Model
	detail   viewport.Model
	spinner  spinner.Model
	mode     browseView
	loading  bool
	err      error
	width    int
	height   int
}

func newBrowser(prov corpus.Provider, arch string) browser {
	records := list.New([]list.Item{}, recordDelegate{}, 80, 22)
	records.SetShowStatusBar(false)
	records.SetFilteringEnabled(true)
	records.Title = arch
	records.Styles.Title = styles.Title.MarginLeft(2)
	records.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Selected

	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(22)

	return browser{
		arch:     arch,
		provider: prov,
		records:  records,
		detail:   vp,
		spinner:  s,
		loading:  true,
		width:    80,
		height:   24,
	}
}

func (m browser) Init() tea.Cmd {
	return tea.Batch(loadProfileCmd(m.provider, m.arch), m.spinner.Tick)
}

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case profileMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.profile = msg.profile
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = recordItem{rec: r}
		}
		m.records.Title = fmt.Sprintf("%s · %d opcodes", msg.profile.Name, len(items))
		return m, m.records.SetItems(items)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.records.SetWidth(msg.Width)
		m.records.SetHeight(msg.Height - 2)
		m.detail.SetWidth(msg.Width)
		m.detail.SetHeight(msg.Height - 2)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg.String()); handled {
			return next, cmd
		}
	}

	switch m.mode {
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	default:
		m.records, cmd = m.records.Update(msg)
	}
	return m, cmd
}

// handleKey applies the browser's own bindings. Keys it does not handle
// go to the active pane.
func (m browser) handleKey(key string) (browser, tea.Cmd, bool) {
	filtering := m.mode == viewRecords && m.records.FilterState() == list.Filtering
	switch key {
	case "ctrl+c":
		return m, tea.Quit, true
	case "q":
		if filtering {
			return m, nil, false
		}
		return m, tea.Quit, true
	}
	if filtering || m.profile == nil {
		return m, nil, false
	}
	switch key {
	case "enter", "tab":
		if m.mode == viewRecords {
			if it, ok := m.records.SelectedItem().(recordItem); ok {
				m.showDetail(it.rec.Opcode)
			}
			return m, nil, true
		}
		if key == "tab" {
			m.mode = viewRecords
			return m, nil, true
		}
	case "esc", "backspace", "shift+tab":
		if m.mode == viewDetail {
			m.mode = viewRecords
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m *browser) showDetail(op int) {
	det, err := describe(m.profile, op)
	var md string
	if det != nil {
		md = detailMarkdown(m.profile, det, err)
	} else {
		md = fmt.Sprintf("# %s\n\n%v\n", m.profile.Name, err)
	}
	m.detail.SetContent(strings.TrimSuffix(styles.RenderMarkdown(md, m.width-2), "\n"))
	m.detail.GotoTop()
	m.mode = viewDetail
}

func detailMarkdown(p *isa.Profile, det *detail, err error) string {
	var b strings.Builder
	r := det.Record
	fmt.Fprintf(&b, "# %s\n\n", r.Mnemonic)
	fmt.Fprintf(&b, "| | |\n|---|---|\n| opcode | %d |\n| outcome | %s |\n", r.Opcode, r.Outcome)
	if r.Outcome != classify.Built {
		if err != nil && !errors.Is(err, errNotBuilt) {
			fmt.Fprintf(&b, "\n> %v\n", err)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "| printable | %t |\n", r.Printable)
	fmt.Fprintf(&b, "\n## operands\n\n`%s`\n", det.Operands)
	if err != nil {
		fmt.Fprintf(&b, "\n> %v\n", err)
		return b.String()
	}
	fmt.Fprintf(&b, "\n## artifact\n\n```\n% x\n% x\n```\n", det.Code, det.Term)
	fmt.Fprintf(&b, "\n## assembly\n\n```\n%s\n", det.Text)
	for _, in := range det.Listing[min(1, len(det.Listing)):] {
		fmt.Fprintf(&b, "%s\n", in.Text)
	}
	b.WriteString("```\n")
	if det.ListingErr != nil {
		fmt.Fprintf(&b, "\n> listing: %v\n", det.ListingErr)
	}
	fmt.Fprintf(&b, "\n%s, terminator `%s`\n", p.Triple, p.Terminator().Format(p))
	return b.String()
}

func (m browser) View() string {
	var content, menu string
	switch {
	case m.err != nil:
		content = fmt.Sprintf("\n  %v\n", m.err)
		menu = " Q: quit "
	case m.loading:
		content = fmt.Sprintf("\n  %s Loading %s...\n", m.spinner.View(), m.arch)
		menu = " Q: quit "
	case m.mode == viewDetail:
		content = m.detail.View()
		menu = " Esc: back • ↑/↓: scroll • Q: quit "
	default:
		content = m.records.View()
		menu = " Enter: details • /: filter • Q: quit "
	}
	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <arch>",
		Short: "Browse the classification of an architecture interactively",
		Long: `Browse opens a terminal browser over every opcode of an architecture. Selecting
a built opcode synthesizes it and shows its operands, bytes and assembly. When
output is not a terminal the classification table is printed instead.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd.OutOrStdout()) {
				p, err := a.provider.Profile(args[0])
				if err != nil {
					return err
				}
				writeTable(cmd.OutOrStdout(), p, classify.All(p), false)
				return nil
			}
			program := tea.NewProgram(
				newBrowser(a.provider, args[0]),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			final, err := program.Run()
			if err != nil {
				return fmt.Errorf("browser: %w", err)
			}
			if b, ok := final.(browser); ok && b.err != nil {
				return b.err
			}
			return nil
		},
	}
}
