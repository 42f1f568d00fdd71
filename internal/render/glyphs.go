package render

// Glyphs are the characters used to draw the commit graph.
type Glyphs struct {
	Line                 string
	LineWithOffshoot     string
	VerticalEllipsis     string
	Slash                string
	Commit               string
	CommitHead           string
	CommitHidden         string
	CommitHiddenHead     string
	CommitMain           string
	CommitMainHead       string
	CommitMainHidden     string
	CommitMainHiddenHead string
}

// TextGlyphs returns the plain ASCII glyph set, suitable for piping
// and for golden tests.
func TextGlyphs() Glyphs {
	return Glyphs{
		Line:                 "|",
		LineWithOffshoot:     "|",
		VerticalEllipsis:     ":",
		Slash:                "\\",
		Commit:               "o",
		CommitHead:           "@",
		CommitHidden:         "x",
		CommitHiddenHead:     "%",
		CommitMain:           "O",
		CommitMainHead:       "@",
		CommitMainHidden:     "X",
		CommitMainHiddenHead: "%",
	}
}

// PrettyGlyphs returns the Unicode glyph set used on a terminal.
func PrettyGlyphs() Glyphs {
	return Glyphs{
		Line:                 "┃",
		LineWithOffshoot:     "┣",
		VerticalEllipsis:     "⋮",
		Slash:                "━┓",
		Commit:               "◯",
		CommitHead:           "●",
		CommitHidden:         "✕",
		CommitHiddenHead:     "⦻",
		CommitMain:           "◇",
		CommitMainHead:       "◆",
		CommitMainHidden:     "✕",
		CommitMainHiddenHead: "❖",
	}
}
