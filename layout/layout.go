package layout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Luismorlan/vehicle_ledger/commands"
	"github.com/jroimartin/gocui"
)

const (
	inputView   = "input"
	pastView    = "pastcommand"
	loggerView  = "logger"
	manualView  = "manual"
	historySize = 100
)

// history keeps the commands typed so far, newest last.
type history struct {
	lines []string
	m     sync.RWMutex
}

func (h *history) add(s string) {
	h.m.Lock()
	defer h.m.Unlock()
	h.lines = append(h.lines, s)
	if len(h.lines) > historySize {
		h.lines = h.lines[len(h.lines)-historySize:]
	}
}

func (h *history) all() []string {
	h.m.RLock()
	defer h.m.RUnlock()
	return append([]string(nil), h.lines...)
}

// PastCmd is the ViewManager that logs past command.
type PastCmd struct {
	name string
	h    *history
}

// Input box for command.
type Input struct {
	name string
	h    *history
	cmd  chan commands.Command
}

type Logger struct {
	name string
}

type Manual struct {
	name string
	text string
}

func (pc *PastCmd) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom left corner.
	v, err := g.SetView(pc.name, 1, maxY*2/3, maxX/3, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Autoscroll = true
	v.Wrap = true
	v.Clear()
	for _, line := range pc.h.all() {
		fmt.Fprintln(v, "> "+line)
	}
	return nil
}

func (i *Input) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom, full width.
	v, err := g.SetView(i.name, 1, maxY-5, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Autoscroll = true
	v.Editor = i
	v.Editable = true
	return nil
}

func (l *Logger) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Right side.
	v, err := g.SetView(l.name, maxX/3+1, 1, maxX-1, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = "log"
	v.Autoscroll = true
	v.Wrap = true
	return nil
}

func (m *Manual) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Top left corner.
	v, err := g.SetView(m.name, 1, 1, maxX/3, maxY*2/3-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = "usage"
	v.Wrap = true
	v.Clear()
	fmt.Fprintln(v, m.text)
	return nil
}

// Submit parses one console line. Valid commands are sent to the node; every line, with
// its error if any, goes to the history.
func (i *Input) Submit(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	op, err := commands.CreateCommand(s)
	if err != nil {
		i.h.add(s + "\n" + err.Error())
		return
	}
	i.h.add(s)
	// If a valid command, send to fullnode for processing.
	i.cmd <- op
}

func (i *Input) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyEnter:
		// Read buffer and remove \n from it.
		s := strings.Replace(v.Buffer(), "\n", "", -1)
		go i.Submit(s)

		// Reset cursor.
		v.Clear()
		v.SetOrigin(0, 0)
		v.SetCursor(0, 0)

	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	}
}

func SetFocus(name string) func(g *gocui.Gui) error {
	return func(g *gocui.Gui) error {
		_, err := g.SetCurrentView(name)
		return err
	}
}

// LogWriter forwards log output into the logger view.
type LogWriter struct {
	g *gocui.Gui
}

func NewLogWriter(g *gocui.Gui) *LogWriter {
	return &LogWriter{g: g}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	line := string(p)
	w.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(loggerView)
		if err != nil {
			// Not laid out yet.
			return nil
		}
		fmt.Fprint(v, line)
		return nil
	})
	return len(p), nil
}

// Create a GUI, using the command channel to pass command to fullnode. manualPath is shown
// in the usage pane.
func CreateGui(cmd chan commands.Command, manualPath string) (*gocui.Gui, error) {
	manual, err := os.ReadFile(manualPath)
	if err != nil {
		return nil, err
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	g.Cursor = true

	h := &history{}
	pc := &PastCmd{name: pastView, h: h}
	l := &Logger{name: loggerView}
	m := &Manual{name: manualView, text: string(manual)}
	input := &Input{name: inputView, h: h, cmd: cmd}
	focus := gocui.ManagerFunc(SetFocus(inputView))
	g.SetManager(pc, input, l, m, focus)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		g.Close()
		return nil, err
	}

	return g, nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
