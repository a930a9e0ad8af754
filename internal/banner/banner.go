package banner

import (
	"github.com/charmbracelet/lipgloss"
)

var colorBanner = lipgloss.Color("#7D56F4")

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(colorBanner).
		Bold(true)

	ascii := `
    __         __    __           __
   / /___   __/ /_  / /___ ______/ /_
  / //_/ | / / __ \/ / __ '/ ___/ __/
 / ,<  | |/ / /_/ / / /_/ (__  ) /_
/_/|_| |___/_.___/_/\__,_/____/\__/  `

	return "\n" + style.Render(ascii) + "\n"
}
