package display

import (
	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/pkg/models"
)

// LineHeight is shared by every reading theme
const LineHeight = 1.6

// Palettes are registered with each renderer on attach
var Palettes = map[models.ThemeName]engine.Theme{
	models.ThemeLight: {Background: "#ffffff", Foreground: "#222222", LineHeight: LineHeight},
	models.ThemeSepia: {Background: "#fdf6e3", Foreground: "#222222", LineHeight: LineHeight},
	models.ThemeDark:  {Background: "#0f1416", Foreground: "#bfc8ca", LineHeight: LineHeight},
}
