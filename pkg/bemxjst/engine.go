// Package bemxjst is the built-in member of the BEM-XJST template engine
// family. It compiles the declarative template subject/mode syntax
//
//	block('page')(tag()('h1'), content()('Hello, world!'))
//
// into a JSON program and applies programs to BEMJSON data, producing HTML
// (BEMHTML) or an expanded BEMJSON tree (BEMTREE).
package bemxjst

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Runtime selects what applying a program produces.
type Runtime string

const (
	RuntimeHTML Runtime = "bemhtml"
	RuntimeTree Runtime = "bemtree"
)

// Engine compiles template sources for one runtime.
type Engine struct {
	name    string
	runtime Runtime
}

var (
	// BEMHTML renders BEMJSON to HTML strings.
	BEMHTML = &Engine{name: "bemhtml", runtime: RuntimeHTML}
	// BEMTREE expands BEMJSON into BEMJSON.
	BEMTREE = &Engine{name: "bemtree", runtime: RuntimeTree}
)

// NewEngine returns an engine with a custom name backed by runtime.
func NewEngine(name string, runtime Runtime) (*Engine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("bemxjst: engine name is required")
	}
	switch runtime {
	case RuntimeHTML, RuntimeTree:
	default:
		return nil, fmt.Errorf("bemxjst: unknown runtime %q", runtime)
	}
	return &Engine{name: name, runtime: runtime}, nil
}

// EngineName is the name used for default output extensions.
func (e *Engine) EngineName() string {
	return e.name
}

// Compile parses source into a program.
func (e *Engine) Compile(source string, options map[string]any) (*Program, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	chains, err := parse(source)
	if err != nil {
		return nil, err
	}
	rules, err := flatten(chains)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []Rule{}
	}
	return &Program{
		Engine:    string(e.runtime),
		Version:   ProgramVersion,
		Options:   opts,
		Templates: rules,
	}, nil
}

// Generate compiles source and returns the generated code. Syntax failures
// are returned as *SyntaxError.
func (e *Engine) Generate(source string, options map[string]any) (string, error) {
	prog, err := e.Compile(source, options)
	if err != nil {
		return "", err
	}
	return prog.Encode()
}

// Template is a loaded program ready to be applied to data.
type Template struct {
	prog *Program
}

// Load turns generated code into a Template.
func Load(code string) (*Template, error) {
	prog, err := Decode(code)
	if err != nil {
		return nil, err
	}
	return NewTemplate(prog)
}

// NewTemplate wraps an already decoded program.
func NewTemplate(prog *Program) (*Template, error) {
	if prog == nil {
		return nil, fmt.Errorf("bemxjst: program is nil")
	}
	switch Runtime(prog.Engine) {
	case RuntimeHTML, RuntimeTree:
	default:
		return nil, fmt.Errorf("bemxjst: unknown runtime %q", prog.Engine)
	}
	return &Template{prog: prog}, nil
}

// Runtime reports which runtime the template was compiled for.
func (t *Template) Runtime() Runtime {
	return Runtime(t.prog.Engine)
}

// Apply renders data. BEMHTML templates return a string, BEMTREE templates
// return the expanded tree.
func (t *Template) Apply(data any) (any, error) {
	if t.Runtime() == RuntimeTree {
		return expandTree(t.prog, data, "", 0)
	}
	return renderHTML(t.prog, data)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Engine{
		BEMHTML.name: BEMHTML,
		BEMTREE.name: BEMTREE,
	}
)

// Lookup returns the registered engine for name (case-insensitive).
func Lookup(name string) (*Engine, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// Register makes an engine available by name. Duplicate names return an
// error.
func Register(e *Engine) error {
	if e == nil {
		return fmt.Errorf("bemxjst: engine is required")
	}
	key := strings.ToLower(e.name)

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[key]; exists {
		return fmt.Errorf("bemxjst: engine %q already registered", key)
	}
	registry[key] = e
	return nil
}

// Names lists registered engine names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
