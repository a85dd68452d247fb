package bemxjst

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ProgramVersion is bumped whenever the compiled layout changes.
const ProgramVersion = 1

// Rule is one compiled template: a subject (block, elem, mods, elemMods), a
// mode and the literal value the mode yields.
type Rule struct {
	Block    string         `json:"block"`
	Elem     string         `json:"elem,omitempty"`
	Mods     map[string]any `json:"mods,omitempty"`
	ElemMods map[string]any `json:"elemMods,omitempty"`
	Mode     string         `json:"mode"`
	Value    any            `json:"value"`
}

// Program is the compiled form of a template source. Its JSON encoding is
// the generated code handed downstream; being plain JSON it is also a valid
// JavaScript expression, which lets bundles embed it verbatim.
type Program struct {
	Engine    string  `json:"engine"`
	Version   int     `json:"version"`
	Options   Options `json:"options"`
	Templates []Rule  `json:"templates"`
}

// Options are the engine settings recorded in a program.
type Options struct {
	ElemDelim string `json:"elemDelim"`
	ModDelim  string `json:"modDelim"`
	XHTML     bool   `json:"xhtml,omitempty"`
}

func defaultOptions() Options {
	return Options{ElemDelim: "__", ModDelim: "_"}
}

// parseOptions reads the engine settings this runtime understands. Other
// keys are ignored.
func parseOptions(in map[string]any) (Options, error) {
	opts := defaultOptions()
	if len(in) == 0 {
		return opts, nil
	}
	if raw, ok := in["naming"]; ok && raw != nil {
		naming, ok := raw.(map[string]any)
		if !ok {
			return opts, fmt.Errorf("bemxjst: naming option must be an object, got %T", raw)
		}
		if elem, ok := naming["elem"].(string); ok && elem != "" {
			opts.ElemDelim = elem
		}
		if mod, ok := naming["mod"].(string); ok && mod != "" {
			opts.ModDelim = mod
		}
	}
	if raw, ok := in["xhtml"]; ok {
		xhtml, ok := raw.(bool)
		if !ok {
			return opts, fmt.Errorf("bemxjst: xhtml option must be a boolean, got %T", raw)
		}
		opts.XHTML = xhtml
	}
	return opts, nil
}

// Encode renders the program as compact JSON.
func (p *Program) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("bemxjst: encode program: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ErrNotProgram reports text that is not a compiled program.
var ErrNotProgram = errors.New("bemxjst: not a compiled program")

// Decode parses generated code back into a Program.
func Decode(code string) (*Program, error) {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotProgram
	}
	var prog Program
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotProgram, err)
	}
	if prog.Engine == "" || prog.Templates == nil {
		return nil, ErrNotProgram
	}
	if prog.Version > ProgramVersion {
		return nil, fmt.Errorf("bemxjst: program version %d is newer than supported %d", prog.Version, ProgramVersion)
	}
	if prog.Options.ElemDelim == "" {
		prog.Options.ElemDelim = "__"
	}
	if prog.Options.ModDelim == "" {
		prog.Options.ModDelim = "_"
	}
	for i := range prog.Templates {
		prog.Templates[i].Value = normaliseNumbers(prog.Templates[i].Value)
	}
	return &prog, nil
}

// IsProgram reports whether code looks like a compiled program.
func IsProgram(code string) bool {
	_, err := Decode(code)
	return err == nil
}

func normaliseNumbers(v any) any {
	switch value := v.(type) {
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	case map[string]any:
		for k, inner := range value {
			value[k] = normaliseNumbers(inner)
		}
		return value
	case []any:
		for i, inner := range value {
			value[i] = normaliseNumbers(inner)
		}
		return value
	default:
		return v
	}
}

// entity is the BEM subject a node resolves to at render time.
type entity struct {
	block    string
	elem     string
	mods     map[string]any
	elemMods map[string]any
}

func (r Rule) matches(e entity) bool {
	if r.Block != e.block {
		return false
	}
	if r.Elem != e.elem {
		return false
	}
	for name, want := range r.Mods {
		if !modMatches(e.mods[name], want) {
			return false
		}
	}
	for name, want := range r.ElemMods {
		if !modMatches(e.elemMods[name], want) {
			return false
		}
	}
	return true
}

func modMatches(actual, want any) bool {
	a, ok := modValue(actual)
	if !ok {
		return false
	}
	w, ok := modValue(want)
	if !ok {
		return false
	}
	return a == w
}

// modValue renders a modifier value; false, nil and "" mean "not set".
func modValue(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case bool:
		if !value {
			return "", false
		}
		return "true", true
	case string:
		if value == "" {
			return "", false
		}
		return value, true
	default:
		if s, ok := numberString(value); ok {
			return s, true
		}
		return fmt.Sprint(value), true
	}
}

// lookup returns the value of the last template matching mode and e.
func (p *Program) lookup(mode string, e entity) (any, bool) {
	if e.block == "" {
		return nil, false
	}
	for i := len(p.Templates) - 1; i >= 0; i-- {
		rule := p.Templates[i]
		if rule.Mode != mode {
			continue
		}
		if rule.matches(e) {
			return rule.Value, true
		}
	}
	return nil, false
}

func numberString(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	case int:
		return strconv.Itoa(n), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case json.Number:
		return n.String(), true
	}
	return "", false
}
