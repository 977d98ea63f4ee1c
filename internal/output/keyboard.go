package output

import (
	"errors"
	"sync"

	"github.com/micmonay/keybd_event"
)

var errNoKeyboard = errors.New("keyboard simulation unavailable")

// keySender presses one key chord.
type keySender interface {
	Press(shift bool, ctrl bool, key int) error
}

type virtualKeyboard struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

func newVirtualKeyboard() (*virtualKeyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	return &virtualKeyboard{kb: kb}, nil
}

func (k *virtualKeyboard) Press(shift bool, ctrl bool, key int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kb.Clear()
	k.kb.HasSHIFT(shift)
	k.kb.HasCTRL(ctrl)
	k.kb.SetKeys(key)
	return k.kb.Launching()
}

var letterKeys = map[rune]int{
	'a': keybd_event.VK_A, 'b': keybd_event.VK_B, 'c': keybd_event.VK_C, 'd': keybd_event.VK_D,
	'e': keybd_event.VK_E, 'f': keybd_event.VK_F, 'g': keybd_event.VK_G, 'h': keybd_event.VK_H,
	'i': keybd_event.VK_I, 'j': keybd_event.VK_J, 'k': keybd_event.VK_K, 'l': keybd_event.VK_L,
	'm': keybd_event.VK_M, 'n': keybd_event.VK_N, 'o': keybd_event.VK_O, 'p': keybd_event.VK_P,
	'q': keybd_event.VK_Q, 'r': keybd_event.VK_R, 's': keybd_event.VK_S, 't': keybd_event.VK_T,
	'u': keybd_event.VK_U, 'v': keybd_event.VK_V, 'w': keybd_event.VK_W, 'x': keybd_event.VK_X,
	'y': keybd_event.VK_Y, 'z': keybd_event.VK_Z,
}

var otherKeys = map[rune]int{
	'0': keybd_event.VK_0, '1': keybd_event.VK_1, '2': keybd_event.VK_2, '3': keybd_event.VK_3,
	'4': keybd_event.VK_4, '5': keybd_event.VK_5, '6': keybd_event.VK_6, '7': keybd_event.VK_7,
	'8': keybd_event.VK_8, '9': keybd_event.VK_9,
	' ':  keybd_event.VK_SPACE,
	'\n': keybd_event.VK_ENTER,
	'\t': keybd_event.VK_TAB,
}

// keyFor maps a rune to a key code that is identical on every keyboard
// layout. Punctuation is layout dependent and is not mapped.
func keyFor(r rune) (key int, shift bool, ok bool) {
	if key, ok := letterKeys[r]; ok {
		return key, false, true
	}
	if r >= 'A' && r <= 'Z' {
		key, ok := letterKeys[r+('a'-'A')]
		return key, true, ok
	}
	key, ok = otherKeys[r]
	return key, false, ok
}

type run struct {
	text     string
	typeable bool
}

// splitRuns groups text into alternating typeable and non-typeable runs.
func splitRuns(text string) []run {
	var out []run
	start := 0
	var current bool
	for i, r := range text {
		_, _, ok := keyFor(r)
		if i == 0 {
			current = ok
			continue
		}
		if ok != current {
			out = append(out, run{text: text[start:i], typeable: current})
			start, current = i, ok
		}
	}
	if start < len(text) {
		out = append(out, run{text: text[start:], typeable: current})
	}
	return out
}
