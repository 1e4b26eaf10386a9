package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/solver"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true)

	hitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	standStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// Grid writes the policy as two tables, with and without a usable ace. Rows
// run from 21 down to 11 and columns from dealer A to 10; each cell is H or S.
func Grid(w io.Writer, policy *solver.Policy, color bool) error {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	for i, usableAce := range []bool{true, false} {
		if i > 0 {
			b.WriteString("\n")
		}
		title := "No usable ace"
		if usableAce {
			title = "Usable ace"
		}
		b.WriteString(style(titleStyle, " "+title+" "))
		b.WriteString("\n")

		b.WriteString("    ")
		for d := blackjack.Ace; d <= blackjack.Ten; d++ {
			b.WriteString(style(labelStyle, fmt.Sprintf("%3s", d)))
		}
		b.WriteString("\n")

		for sum := solver.MaxSum; sum >= solver.MinSum; sum-- {
			b.WriteString(style(labelStyle, fmt.Sprintf("%3d ", sum)))
			for d := blackjack.Ace; d <= blackjack.Ten; d++ {
				hit, err := policy.Hit(blackjack.PlayerState{Sum: sum, UsableAce: usableAce, DealerCard: d})
				if err != nil {
					return err
				}
				cell := style(standStyle, "S")
				if hit {
					cell = style(hitStyle, "H")
				}
				b.WriteString("  ")
				b.WriteString(cell)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
