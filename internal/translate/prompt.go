package translate

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Prompt names. Each is a JSON file "<name>.json" with "sp" (system) and
// "up" (user) template strings.
const (
	PromptTranslate = "translate"
	PromptSplit     = "split"
)

//go:embed prompts/*.json
var embeddedPrompts embed.FS

// ErrInvalidPrompt is returned when a prompt file lacks a template.
var ErrInvalidPrompt = errors.New("translate: prompt must define sp and up templates")

// Prompt is a parsed pair of chat templates.
type Prompt struct {
	system *template.Template
	user   *template.Template
}

type promptFile struct {
	System string `json:"sp"`
	User   string `json:"up"`
}

// LoadPrompt reads the named prompt from dir when dir holds a
// "<name>.json", falling back to the built-in prompt otherwise.
func LoadPrompt(name, dir string) (*Prompt, error) {
	var (
		data []byte
		err  error
	)
	if dir != "" {
		data, err = os.ReadFile(filepath.Join(dir, name+".json")) // #nosec G304 - operator supplied prompt dir
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("translate: read prompt %s: %w", name, err)
		}
	}
	if data == nil {
		data, err = embeddedPrompts.ReadFile("prompts/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("translate: unknown prompt %s: %w", name, err)
		}
	}
	return ParsePrompt(name, data)
}

// ParsePrompt parses a prompt file's JSON content. Templates may use the
// sprig function library.
func ParsePrompt(name string, data []byte) (*Prompt, error) {
	var pf promptFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("translate: decode prompt %s: %w", name, err)
	}
	if pf.System == "" || pf.User == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrompt, name)
	}

	sys, err := template.New(name + ".sp").Funcs(sprig.FuncMap()).Parse(pf.System)
	if err != nil {
		return nil, fmt.Errorf("translate: parse %s system prompt: %w", name, err)
	}
	usr, err := template.New(name + ".up").Funcs(sprig.FuncMap()).Parse(pf.User)
	if err != nil {
		return nil, fmt.Errorf("translate: parse %s user prompt: %w", name, err)
	}
	return &Prompt{system: sys, user: usr}, nil
}

// Render executes both templates with data.
func (p *Prompt) Render(data any) (system, user string, err error) {
	var buf bytes.Buffer
	if err := p.system.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("translate: render system prompt: %w", err)
	}
	system = buf.String()

	buf.Reset()
	if err := p.user.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("translate: render user prompt: %w", err)
	}
	return system, buf.String(), nil
}
