package chat

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// A PlaceholderFunc resolves a placeholder to text containing style codes.
type PlaceholderFunc func(p Participant) (string, error)

// A RichPlaceholderFunc resolves a placeholder to styled text.
type RichPlaceholderFunc func(p Participant) (Text, error)

// A PlaceholderEngine expands :name: tokens.
// Names are case-insensitive. If a name has both a plain and a rich
// resolver, the rich one is used.
type PlaceholderEngine struct {
	mu     sync.RWMutex
	plain  map[string]PlaceholderFunc
	rich   map[string]RichPlaceholderFunc
	logger *log.Logger
}

// NewPlaceholderEngine returns an engine that knows every placeholder
// registered by plugins.
func NewPlaceholderEngine() *PlaceholderEngine {
	pe := &PlaceholderEngine{
		plain:  make(map[string]PlaceholderFunc),
		rich:   make(map[string]RichPlaceholderFunc),
		logger: newLogger("placeholder"),
	}

	pluginPlaceholdersMu.RLock()
	defer pluginPlaceholdersMu.RUnlock()

	for name, fn := range pluginPlaceholders {
		pe.plain[name] = fn
	}

	for name, fn := range pluginRichPlaceholders {
		pe.rich[name] = fn
	}

	return pe
}

// Register sets the plain resolver of a placeholder.
func (pe *PlaceholderEngine) Register(name string, fn PlaceholderFunc) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	pe.plain[strings.ToLower(name)] = fn
}

// RegisterRich sets the rich resolver of a placeholder.
func (pe *PlaceholderEngine) RegisterRich(name string, fn RichPlaceholderFunc) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	pe.rich[strings.ToLower(name)] = fn
}

// Names returns the registered placeholder names.
func (pe *PlaceholderEngine) Names() []string {
	pe.mu.RLock()
	defer pe.mu.RUnlock()

	seen := make(map[string]struct{})
	var names []string
	for name := range pe.plain {
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for name := range pe.rich {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}

	return names
}

// Expand resolves every placeholder in text on behalf of p
// and parses the style codes of the result.
// A failing resolver leaves its token verbatim and is logged.
func (pe *PlaceholderEngine) Expand(p Participant, text string) Text {
	pe.mu.RLock()
	defer pe.mu.RUnlock()

	text = pe.expandPlain(p, text)

	toks := scanPlaceholders(text, func(name string) bool {
		_, ok := pe.rich[name]
		return ok
	})
	if len(toks) == 0 {
		return ParseStyled(text)
	}

	var out Text
	last := 0
	for _, tok := range toks {
		out = out.Append(ParseStyled(text[last:tok.start]))

		frag, err := pe.resolveRich(pe.rich[tok.name], p)
		if err != nil {
			pe.logger.Printf("resolve :%s: for %s: %v", tok.name, p.Name(), err)
			frag = Literal(text[tok.start:tok.end])
		}

		out = out.Append(frag)
		last = tok.end
	}

	return out.Append(ParseStyled(text[last:]))
}

// ExpandPlain is Expand without styling.
func (pe *PlaceholderEngine) ExpandPlain(p Participant, text string) string {
	return pe.Expand(p, text).Plain()
}

// expandPlain substitutes placeholders that only have a plain resolver.
func (pe *PlaceholderEngine) expandPlain(p Participant, text string) string {
	toks := scanPlaceholders(text, func(name string) bool {
		if _, ok := pe.rich[name]; ok {
			return false
		}

		_, ok := pe.plain[name]
		return ok
	})
	if len(toks) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, tok := range toks {
		b.WriteString(text[last:tok.start])

		s, err := pe.resolvePlain(pe.plain[tok.name], p)
		if err != nil {
			pe.logger.Printf("resolve :%s: for %s: %v", tok.name, p.Name(), err)
			s = text[tok.start:tok.end]
		}

		b.WriteString(s)
		last = tok.end
	}

	b.WriteString(text[last:])
	return b.String()
}

func (pe *PlaceholderEngine) resolvePlain(fn PlaceholderFunc, p Participant) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panicked: %v", r)
		}
	}()

	return fn(p)
}

func (pe *PlaceholderEngine) resolveRich(fn RichPlaceholderFunc, p Participant) (t Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panicked: %v", r)
		}
	}()

	return fn(p)
}

type placeholderToken struct {
	start, end int
	name       string
}

// scanPlaceholders finds the non-overlapping :name: tokens of s,
// left to right, whose lowercased name satisfies known.
// The closing colon of a rejected token may open the next one.
func scanPlaceholders(s string, known func(string) bool) []placeholderToken {
	var toks []placeholderToken

	i := 0
	for i < len(s) {
		j := strings.IndexByte(s[i:], ':')
		if j < 0 {
			break
		}

		start := i + j
		k := start + 1
		for k < len(s) && isWordByte(s[k]) {
			k++
		}

		switch {
		case k == start+1:
			i = start + 1
		case k < len(s) && s[k] == ':':
			name := strings.ToLower(s[start+1 : k])
			if known(name) {
				toks = append(toks, placeholderToken{start: start, end: k + 1, name: name})
				i = k + 1
			} else {
				i = k
			}
		default:
			i = k
		}
	}

	return toks
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
