package ui

import "image/color"

type Theme struct {
	AppBackground color.RGBA
	TopBar        color.RGBA
	Toolbar       color.RGBA
	Canvas        color.RGBA
	Page          color.RGBA
	Border        color.RGBA
	CardStrip     color.RGBA
	StatusBar     color.RGBA
	Accent        color.RGBA
	Shadow        color.RGBA
	Selection     color.RGBA
	Marquee       color.RGBA

	MenuHeightDp    int
	ToolbarHeightDp int
	StripHeightDp   int
	StatusHeightDp  int
	CanvasMarginDp  int
}

func DefaultTheme() Theme {
	return Theme{
		AppBackground:   color.RGBA{0xF3, 0xF5, 0xF8, 0xFF},
		TopBar:          color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Toolbar:         color.RGBA{0xF7, 0xF9, 0xFC, 0xFF},
		Canvas:          color.RGBA{0xE2, 0xE7, 0xEF, 0xFF},
		Page:            color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:          color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		CardStrip:       color.RGBA{0xEE, 0xF2, 0xF8, 0xFF},
		StatusBar:       color.RGBA{0xEA, 0xEF, 0xF6, 0xFF},
		Accent:          color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Shadow:          color.RGBA{0xC8, 0xCF, 0xDB, 0xFF},
		Selection:       color.RGBA{0x1E, 0x6F, 0xD9, 0xFF},
		Marquee:         color.RGBA{0x4D, 0x86, 0xCD, 0xFF},
		MenuHeightDp:    34,
		ToolbarHeightDp: 42,
		StripHeightDp:   40,
		StatusHeightDp:  28,
		CanvasMarginDp:  24,
	}
}
