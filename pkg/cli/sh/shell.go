// Package sh provides the ishell backed operator console for an ELRS
// transmitter module.
package sh

import (
	"flag"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/rcwire/elrsctl/pkg/port"
	"github.com/rcwire/elrsctl/pkg/state"
	"github.com/rcwire/elrsctl/pkg/transmitter"
)

// Shell provides the interactive console.
type Shell struct {
	Interactive bool

	Shell   *ishell.Shell
	State   *state.RadioState
	Session *Session
}

// Session is an open port with its running transmitter.
type Session struct {
	PortName string
	TX       *transmitter.Transmitter
}

const (
	shellKey     = "$shell"
	closedPrompt = "[no port] > "
)

var (
	// flags

	evalOnly bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	port.SetupFlags()
}

// AddCmds is used by other command providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell around a radio state store.
func New(st *state.RadioState) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		State:       st,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps a command func that requires an open port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("no port open"))
			return
		}
		fn(c)
	}
}

// TX returns the running transmitter of the current session.
func (s *Shell) TX() *transmitter.Transmitter {
	return s.Session.TX
}

// Open acquires the endpoint and starts the transmitter on it.
func (s *Shell) Open(name string) error {
	if s.Session != nil {
		s.Close()
	}
	p, err := port.NewConfig().OpenName(name)
	if err != nil {
		return err
	}
	tx := transmitter.New(p, s.State)
	if err := tx.Start(); err != nil {
		p.Close()
		return err
	}
	s.Session = &Session{PortName: name, TX: tx}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Close stops the transmitter and releases the port.
func (s *Shell) Close() {
	if s.Session != nil {
		s.Session.TX.Stop()
		s.Session = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell, either interactively or evaluating args.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if s.Interactive {
		s.Shell.Run()
		return
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			fmt.Println(err)
		}
	}
}

// Main is intended to be used from a command main func.
func Main() {
	flag.Parse()
	s := New(state.New())
	if name := port.NewConfig().Name; name != "" {
		if err := s.Open(name); err != nil {
			fmt.Println(err)
		}
	}
	s.Run(flag.Args()...)
}

var (
	// OpenCmd acquires a serial port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: open PORT"))
				return
			}
			if err := ShellFrom(c).Open(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd releases the current port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}
)
