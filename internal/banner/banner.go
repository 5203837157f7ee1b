package banner

import (
	"tracegen/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
  __
 / /__________ _________  ____ ____  ____
/ __/ ___/ __ '/ ___/ _ \/ __ '/ _ \/ __ \
/ /_/ /  / /_/ / /__/  __/ /_/ /  __/ / / /
\__/_/   \__,_/\___/\___/\__, /\___/_/ /_/
                        /____/            `

	return "\n" + style.Render(ascii) + "\n" +
		styles.Subtle.Render("  synthetic platforms and job traces for batch-scheduler simulation") + "\n"
}
