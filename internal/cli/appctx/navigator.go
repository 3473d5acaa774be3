package appctx

import (
	"fmt"
	"io"
	"sync"
)

// TerminalNavigator is the guard.Navigator of a CLI run. A command cannot
// switch pages by itself, so navigating prints which command to run next
// and records the destination for the caller.
type TerminalNavigator struct {
	out   io.Writer
	hints map[string]string

	mu      sync.Mutex
	current string
	visited []string
}

// NewTerminalNavigator starts on page current. hints maps a page path to
// the command that shows it.
func NewTerminalNavigator(out io.Writer, current string, hints map[string]string) *TerminalNavigator {
	return &TerminalNavigator{out: out, current: current, hints: hints}
}

func (n *TerminalNavigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *TerminalNavigator) Navigate(path string) {
	n.mu.Lock()
	n.current = path
	n.visited = append(n.visited, path)
	n.mu.Unlock()

	if hint, ok := n.hints[path]; ok && n.out != nil {
		fmt.Fprintf(n.out, "→ Run '%s' to continue.\n", hint)
	}
}

// Visited returns every page navigated to, in order
func (n *TerminalNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}
