package shell

import (
	"os"
	"os/user"
	"strings"
	"sync/atomic"
)

// Prompt expands {user}, {host} and {cwd} in a template. A lookup that
// fails renders as a placeholder instead of failing the prompt.
type Prompt struct {
	template atomic.Pointer[string]
	user     func() (string, error)
	host     func() (string, error)
	cwd      func() (string, error)
}

// NewPrompt creates a prompt for template.
func NewPrompt(template string) *Prompt {
	p := &Prompt{
		user: currentUser,
		host: os.Hostname,
		cwd:  os.Getwd,
	}
	p.SetTemplate(template)
	return p
}

// SetTemplate replaces the template used by later renders.
func (p *Prompt) SetTemplate(template string) {
	p.template.Store(&template)
}

// Render returns the expanded prompt.
func (p *Prompt) Render() string {
	template := *p.template.Load()
	if !strings.Contains(template, "{") {
		return template
	}
	r := strings.NewReplacer(
		"{user}", lookup(p.user, "(uid failed?)"),
		"{host}", lookup(p.host, "(hostname failed?)"),
		"{cwd}", lookup(p.cwd, "(cwd failed?)"),
	)
	return r.Replace(template)
}

func lookup(fn func() (string, error), fallback string) string {
	v, err := fn()
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func currentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
