package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/blendgen/pkg/catalog"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BlendBrowserModel - Interactive blend catalog browser
// =============================================================================

// batchLoader returns the blend catalogs of batch index.
type batchLoader func(index int64) ([]catalog.Blend, error)

// BlendBrowserModel is the bubbletea model for paging through sampled
// batches. Up and down select a blend; left and right change batch.
type BlendBrowserModel struct {
	Index  int64
	Blends []catalog.Blend
	Cursor int
	Band   string
	Err    error

	load batchLoader
}

// newBlendBrowserModel loads batch start and returns a browser positioned
// on its first blend.
func newBlendBrowserModel(load batchLoader, start int64, band string) BlendBrowserModel {
	m := BlendBrowserModel{Band: band, load: load}
	m.goTo(start)
	return m
}

func (m *BlendBrowserModel) goTo(index int64) {
	blends, err := m.load(index)
	if err != nil {
		m.Err = err
		return
	}
	m.Index, m.Blends, m.Cursor, m.Err = index, blends, 0, nil
}

func (m BlendBrowserModel) Init() tea.Cmd {
	return nil
}

func (m BlendBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Blends)-1 {
			m.Cursor++
		}
	case "right", "l", "n":
		m.goTo(m.Index + 1)
	case "left", "h", "p":
		if m.Index > 0 {
			m.goTo(m.Index - 1)
		}
	}
	return m, nil
}

func (m BlendBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Batch %d", m.Index)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ blend  ←/→ batch  q quit"))
	b.WriteString("\n\n")

	for i, bl := range m.Blends {
		line := fmt.Sprintf("  blend %-3d %d objects", i, len(bl))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("▸" + line[1:]))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.Cursor < len(m.Blends) {
		b.WriteString(m.objectTable(m.Blends[m.Cursor]))
		b.WriteString("\n")
	}
	if m.Err != nil {
		b.WriteString(StyleWarning.Render(m.Err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// objectTable renders one blend's entries.
func (m BlendBrowserModel) objectTable(bl catalog.Blend) string {
	rows := make([][]string, 0, len(bl))
	for _, e := range bl {
		mag := "—"
		if v, ok := e.Mag(m.Band); ok {
			mag = strconv.FormatFloat(v, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			fmt.Sprintf("%+.3f", e.DxSky()),
			fmt.Sprintf("%+.3f", e.DySky()),
			mag,
			fmt.Sprintf("%.5f", e.SourceRA),
			fmt.Sprintf("%.5f", e.SourceDec),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "dx [\"]", "dy [\"]", m.Band, "RA", "Dec").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}
