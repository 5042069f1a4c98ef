// keys.go — key-sequence decoding for sendKeys (spec §4.4).
package interact

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownModifier is a request-level error (spec §4.4 "unknown modifier
// names are a request-level error").
var ErrUnknownModifier = errors.New("interact: unknown modifier name")

// namedKeys maps the <Name> token syntax onto the Framework's own key names.
var namedKeys = map[string]string{
	"Enter":  "Return",
	"Tab":    "Tab",
	"Escape": "Escape",
}

var knownModifiers = map[string]bool{
	"Ctrl":  true,
	"Shift": true,
	"Alt":   true,
	"Meta":  true,
}

// KeyStroke is one decoded key-press-then-release pair.
type KeyStroke struct {
	Key       string
	Modifiers []string
}

// DecodeKeys renders a sendKeys string into a sequence of key strokes,
// decoding named keys (<Enter>, <Tab>, <Escape>) and modifier sequences
// (<Ctrl+A>). Plain runes outside angle brackets become one stroke each.
func DecodeKeys(text string) ([]KeyStroke, error) {
	var strokes []KeyStroke
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if runes[i] == '<' {
			end := indexRune(runes[i+1:], '>')
			if end < 0 {
				// Unterminated token: treat '<' literally.
				strokes = append(strokes, KeyStroke{Key: "<"})
				i++
				continue
			}
			token := string(runes[i+1 : i+1+end])
			stroke, err := decodeToken(token)
			if err != nil {
				return nil, err
			}
			strokes = append(strokes, stroke)
			i += end + 2
			continue
		}
		strokes = append(strokes, KeyStroke{Key: string(runes[i])})
		i++
	}
	return strokes, nil
}

func decodeToken(token string) (KeyStroke, error) {
	parts := strings.Split(token, "+")
	key := parts[len(parts)-1]
	var mods []string
	if len(parts) > 1 {
		mods = parts[:len(parts)-1]
	}
	for _, m := range mods {
		if !knownModifiers[m] {
			return KeyStroke{}, errors.Wrapf(ErrUnknownModifier, "%q", m)
		}
	}
	if named, ok := namedKeys[key]; ok {
		key = named
	} else if len(key) != 1 && len(mods) == 0 {
		// A multi-char token with no modifiers and no known name: still not
		// a recognized named key, but not a modifier error either — surface
		// the literal token so the caller can see what was unrecognized.
		return KeyStroke{Key: token}, nil
	}
	return KeyStroke{Key: key, Modifiers: mods}, nil
}

func indexRune(rs []rune, target rune) int {
	for i, r := range rs {
		if r == target {
			return i
		}
	}
	return -1
}
