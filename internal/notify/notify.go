// Package notify is the shared feedback surface: short, auto-dismissing
// messages stacked in arrival order.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
)

// DefaultTTL is how long a notification stays active
const DefaultTTL = 5 * time.Second

// Level selects the icon and colour of a notification
type Level int

const (
	LevelSuccess Level = iota
	LevelError
	LevelWarning
	LevelInfo
)

type style struct {
	name  string
	icon  string
	color string
}

var styles = map[Level]style{
	LevelSuccess: {"success", "✓", "\x1b[32m"},
	LevelError:   {"error", "✗", "\x1b[31m"},
	LevelWarning: {"warning", "⚠", "\x1b[33m"},
	LevelInfo:    {"info", "ℹ", "\x1b[36m"},
}

const colorReset = "\x1b[0m"

func (l Level) style() style {
	if s, ok := styles[l]; ok {
		return s
	}
	return styles[LevelInfo]
}

func (l Level) String() string { return l.style().name }

// Icon returns the fixed icon of the level
func (l Level) Icon() string { return l.style().icon }

// Notification is one message on the surface
type Notification struct {
	ID        string
	Message   string
	Level     Level
	CreatedAt time.Time
}

type entry struct {
	Notification
	timer clockwork.Timer
}

// Surface renders notifications to a writer and keeps the active stack.
// The zero value is ready to use: the output and clock are created on first use.
type Surface struct {
	Out   io.Writer
	TTL   time.Duration
	Clock clockwork.Clock
	// Color forces colouring on or off; nil detects a terminal.
	Color *bool

	once   sync.Once
	mu     sync.Mutex
	active []*entry
	color  bool
}

// NewSurface creates a surface writing to out
func NewSurface(out io.Writer, ttl time.Duration, clock clockwork.Clock) *Surface {
	return &Surface{Out: out, TTL: ttl, Clock: clock}
}

func (s *Surface) init() {
	s.once.Do(func() {
		if s.Out == nil {
			s.Out = colorable.NewColorableStderr()
			s.color = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		} else if f, ok := s.Out.(*os.File); ok {
			s.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
			s.Out = colorable.NewColorable(f)
		}
		if s.Color != nil {
			s.color = *s.Color
		}
		if s.TTL <= 0 {
			s.TTL = DefaultTTL
		}
		if s.Clock == nil {
			s.Clock = clockwork.NewRealClock()
		}
	})
}

// Notify shows message at level and returns its id
func (s *Surface) Notify(message string, level Level) string {
	s.init()

	e := &entry{Notification: Notification{
		ID:        ulid.Make().String(),
		Message:   message,
		Level:     level,
		CreatedAt: s.Clock.Now(),
	}}

	id := e.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = append(s.active, e)
	s.render(e.Notification)
	e.timer = s.Clock.AfterFunc(s.TTL, func() { s.remove(id, false) })

	return id
}

// Dismiss removes a notification before its TTL. It reports whether the id
// was still active.
func (s *Surface) Dismiss(id string) bool {
	return s.remove(id, true)
}

// remove drops id from the stack. The expiry callback passes stop=false since
// its timer has already fired.
func (s *Surface) remove(id string, stop bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.active {
		if e.ID != id {
			continue
		}
		if stop && e.timer != nil {
			e.timer.Stop()
		}
		s.active = append(s.active[:i], s.active[i+1:]...)
		return true
	}
	return false
}

// Active returns the notifications still showing, oldest first
func (s *Surface) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, 0, len(s.active))
	for _, e := range s.active {
		out = append(out, e.Notification)
	}
	return out
}

func (s *Surface) Success(message string) string { return s.Notify(message, LevelSuccess) }
func (s *Surface) Error(message string) string   { return s.Notify(message, LevelError) }
func (s *Surface) Warning(message string) string { return s.Notify(message, LevelWarning) }
func (s *Surface) Info(message string) string    { return s.Notify(message, LevelInfo) }

func (s *Surface) render(n Notification) {
	st := n.Level.style()
	if s.color {
		fmt.Fprintf(s.Out, "%s%s %s%s\n", st.color, st.icon, n.Message, colorReset)
		return
	}
	fmt.Fprintf(s.Out, "%s %s\n", st.icon, n.Message)
}
