// Package sh provides the line-oriented command menu of the board.
package sh

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/board"
	"github.com/robotalks/nowlink/pkg/wire"
)

// MenuText is printed by h and for unknown input.
const MenuText = "\nMenu:\n1 - Option 1\n2 - Option 2\n3 - Option 3\nh - Show this menu\n" +
	"send TYPE [HEX] - Broadcast a message\npress [MS] - Press the button\nstatus - Show board status\n"

// DefaultPressDuration is the simulated button press duration.
const DefaultPressDuration = 100 * time.Millisecond

// Board is the subset of board.Board used by the menu.
type Board interface {
	Pulse()
	Press(d time.Duration) bool
	Send(typ wire.MessageType, payload []byte) error
	Status() board.Status
}

// Menu executes menu commands against a Board.
type Menu struct {
	Board Board
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	Shell       *ishell.Shell
	Menu        *Menu
}

const (
	shellKey = "$shell"
	prompt   = "> "
)

var (
	evalOnly bool

	commands = []*ishell.Cmd{
		menuCmd("1", "Option 1: relay pulse with bright flash", (*Menu).Option1),
		menuCmd("2", "Option 2", (*Menu).Option2),
		menuCmd("3", "Option 3", (*Menu).Option3),
		menuCmd("h", "Show this menu", (*Menu).Help),
		menuCmd("send", "TYPE [HEX]", (*Menu).Send),
		menuCmd("press", "[MS]", (*Menu).Press),
		menuCmd("status", "", (*Menu).ShowStatus),
	}
)

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell.
func New(b Board) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Menu:        &Menu{Board: b},
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.Shell.NotFound(func(c *ishell.Context) {
		c.Print(MenuText)
	})
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func menuCmd(name, help string, fn func(*Menu, io.Writer, []string) error) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			var out bytes.Buffer
			err := fn(ShellFrom(c).Menu, &out, c.Args)
			if out.Len() > 0 {
				c.Print(out.String())
			}
			if err != nil {
				c.Err(err)
			}
		},
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Printf("%s", MenuText)
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Close stops the shell.
func (s *Shell) Close() error {
	s.Shell.Close()
	return nil
}

// Option1 pulses the relay with a bright flash.
func (m *Menu) Option1(w io.Writer, args []string) error {
	glog.Info("Option 1 selected")
	m.Board.Pulse()
	return nil
}

// Option2 only logs.
func (m *Menu) Option2(w io.Writer, args []string) error {
	glog.Info("Option 2 selected")
	return nil
}

// Option3 only logs.
func (m *Menu) Option3(w io.Writer, args []string) error {
	glog.Info("Option 3 selected")
	return nil
}

// Help prints the menu.
func (m *Menu) Help(w io.Writer, args []string) error {
	_, err := io.WriteString(w, MenuText)
	return err
}

// Send broadcasts a message: TYPE [HEX].
func (m *Menu) Send(w io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: send TYPE [HEX]")
	}
	typ, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid type %q: %v", args[0], err)
	}
	var payload []byte
	if len(args) > 1 {
		if payload, err = hex.DecodeString(args[1]); err != nil {
			return fmt.Errorf("invalid payload: %v", err)
		}
	}
	if err := m.Board.Send(wire.MessageType(typ), payload); err != nil {
		return err
	}
	fmt.Fprintf(w, "sent %s\n", wire.MessageType(typ))
	return nil
}

// Press simulates a button press: [MS].
func (m *Menu) Press(w io.Writer, args []string) error {
	d := DefaultPressDuration
	if len(args) > 0 {
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if !m.Board.Press(d) {
		return fmt.Errorf("button is not simulated")
	}
	return nil
}

// ShowStatus prints the board status.
func (m *Menu) ShowStatus(w io.Writer, args []string) error {
	s := m.Board.Status()
	fmt.Fprintf(w, "identity: %d\nready: %v\nrelay: %v\nbutton: %v\nflashing: %v\nhue: %d\nreceived: %d\n",
		s.Identity, s.Ready, s.Relay, s.ButtonHeld, s.Flashing, s.Hue, s.Received)
	if !s.LastArrived.IsZero() {
		fmt.Fprintf(w, "last: %s\n", s.LastArrived.Format(time.RFC3339Nano))
	}
	return nil
}
