package tui

// Key binding constants used in handleKey.
const (
	KeyQuit     = "q"
	KeyCtrlC    = "ctrl+c"
	KeySpace    = " "
	KeyEnter    = "enter"
	KeyEsc      = "esc"
	KeyReRecord = "r"
	KeyUndo     = "ctrl+z"
	KeyRedo     = "ctrl+y"
	KeyCopy     = "c"
	KeyEdit     = "e"
	KeyBack     = "backspace"
)
