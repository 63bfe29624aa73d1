package tui

import (
	tea "github.com/charmbracelet/bubbletea/v2"
)

// rawKeyBytes translates a key press into the bytes the shell expects on
// its PTY. Unhandled combinations return an empty slice and are dropped.
func rawKeyBytes(msg tea.KeyPressMsg) []byte {
	key := msg.Key()

	if key.Mod&tea.ModCtrl != 0 {
		switch key.Code {
		case tea.KeySpace:
			return []byte{0x00}
		case tea.KeyBackspace:
			return []byte{0x08}
		case tea.KeyEnter:
			return []byte{0x0A}
		case tea.KeyEscape:
			return []byte{0x1B}
		default:
			// Ctrl+letter maps onto the control codes 1-26.
			if key.Code >= 'a' && key.Code <= 'z' {
				return []byte{byte(key.Code - 'a' + 1)}
			}
			if key.Code >= 'A' && key.Code <= 'Z' {
				return []byte{byte(key.Code - 'A' + 1)}
			}
			switch key.Code {
			case '@':
				return []byte{0x00}
			case '[':
				return []byte{0x1B}
			case '\\':
				return []byte{0x1C}
			case ']':
				return []byte{0x1D}
			case '^':
				return []byte{0x1E}
			case '_':
				return []byte{0x1F}
			case '?':
				return []byte{0x7F}
			}
		}
	}

	if key.Mod&tea.ModAlt != 0 {
		// Alt sends ESC followed by the character.
		switch key.Code {
		case tea.KeyBackspace:
			return []byte{0x1B, 0x7F}
		default:
			if len(key.Text) == 1 {
				return []byte{0x1B, key.Text[0]}
			}
			if key.Code >= 32 && key.Code <= 126 {
				return []byte{0x1B, byte(key.Code)}
			}
		}
	}

	switch key.Code {
	case tea.KeyEnter:
		return []byte{'\r'}
	case tea.KeyTab:
		return []byte{'\t'}
	case tea.KeyBackspace:
		return []byte{0x7F}
	case tea.KeyEscape:
		return []byte{0x1B}
	case tea.KeySpace:
		return []byte{' '}
	case tea.KeyDelete:
		return []byte{0x1B, '[', '3', '~'}
	case tea.KeyInsert:
		return []byte{0x1B, '[', '2', '~'}
	case tea.KeyPgUp:
		return []byte{0x1B, '[', '5', '~'}
	case tea.KeyPgDown:
		return []byte{0x1B, '[', '6', '~'}
	case tea.KeyUp:
		return []byte{0x1B, '[', 'A'}
	case tea.KeyDown:
		return []byte{0x1B, '[', 'B'}
	case tea.KeyRight:
		return []byte{0x1B, '[', 'C'}
	case tea.KeyLeft:
		return []byte{0x1B, '[', 'D'}
	case tea.KeyHome:
		return []byte{0x1B, '[', 'H'}
	case tea.KeyEnd:
		return []byte{0x1B, '[', 'F'}
	}

	if seq := functionKeyBytes(key.Code); len(seq) > 0 {
		return seq
	}

	// Printable input: Text carries Unicode and shifted characters.
	if key.Text != "" {
		return []byte(key.Text)
	}
	if key.Code >= 32 && key.Code <= 126 {
		return []byte{byte(key.Code)}
	}
	return nil
}

func functionKeyBytes(code rune) []byte {
	switch code {
	case tea.KeyF1:
		return []byte{0x1B, 'O', 'P'}
	case tea.KeyF2:
		return []byte{0x1B, 'O', 'Q'}
	case tea.KeyF3:
		return []byte{0x1B, 'O', 'R'}
	case tea.KeyF4:
		return []byte{0x1B, 'O', 'S'}
	case tea.KeyF5:
		return []byte{0x1B, '[', '1', '5', '~'}
	case tea.KeyF6:
		return []byte{0x1B, '[', '1', '7', '~'}
	case tea.KeyF7:
		return []byte{0x1B, '[', '1', '8', '~'}
	case tea.KeyF8:
		return []byte{0x1B, '[', '1', '9', '~'}
	case tea.KeyF9:
		return []byte{0x1B, '[', '2', '0', '~'}
	case tea.KeyF10:
		return []byte{0x1B, '[', '2', '1', '~'}
	case tea.KeyF11:
		return []byte{0x1B, '[', '2', '3', '~'}
	case tea.KeyF12:
		return []byte{0x1B, '[', '2', '4', '~'}
	}
	return nil
}
