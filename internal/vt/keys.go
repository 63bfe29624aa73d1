package vt

// keySequences maps symbolic key names to the bytes a shell expects on its
// input stream. Names follow the lower-case convention used by the UI
// toolkits in this repo ("up", "pgdown", "f5", ...).
var keySequences = map[string][]byte{
	"up":        {0x1B, '[', 'A'},
	"down":      {0x1B, '[', 'B'},
	"right":     {0x1B, '[', 'C'},
	"left":      {0x1B, '[', 'D'},
	"home":      {0x1B, '[', 'H'},
	"end":       {0x1B, '[', 'F'},
	"insert":    {0x1B, '[', '2', '~'},
	"delete":    {0x1B, '[', '3', '~'},
	"pgup":      {0x1B, '[', '5', '~'},
	"pgdown":    {0x1B, '[', '6', '~'},
	"tab":       {'\t'},
	"enter":     {'\r'},
	"esc":       {0x1B},
	"backspace": {0x7F},
	"space":     {' '},
	"f1":        {0x1B, 'O', 'P'},
	"f2":        {0x1B, 'O', 'Q'},
	"f3":        {0x1B, 'O', 'R'},
	"f4":        {0x1B, 'O', 'S'},
	"f5":        {0x1B, '[', '1', '5', '~'},
	"f6":        {0x1B, '[', '1', '7', '~'},
	"f7":        {0x1B, '[', '1', '8', '~'},
	"f8":        {0x1B, '[', '1', '9', '~'},
	"f9":        {0x1B, '[', '2', '0', '~'},
	"f10":       {0x1B, '[', '2', '1', '~'},
	"f11":       {0x1B, '[', '2', '3', '~'},
	"f12":       {0x1B, '[', '2', '4', '~'},
}

// KeyBytes returns the escape bytes for a symbolic key name. The second
// return is false for names the table does not know.
func KeyBytes(name string) ([]byte, bool) {
	seq, ok := keySequences[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(seq))
	copy(out, seq)
	return out, true
}
