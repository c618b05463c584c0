// Package sessiontest provides in-memory session collaborators for driver
// tests. Every fake records the calls it receives.
package sessiontest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/usestring/baselib/pkg/session"
)

// Reply is the canned result of a shell command.
type Reply struct {
	Status int
	Output string
	Err    error
}

// Shell is a fake host reached through a Connector. Commands are answered by
// the first rule whose prefix matches; unmatched commands succeed silently.
type Shell struct {
	mu       sync.Mutex
	rules    []rule
	commands []string

	ConnectErr error
	Connects   int
	Sessions   int
	Closed     int
}

type rule struct {
	prefix string
	reply  Reply
}

var (
	_ session.Connector = (*Shell)(nil)
	_ session.Conn      = (*shellConn)(nil)
	_ session.Session   = (*shellSession)(nil)
)

// NewShell creates an empty fake host.
func NewShell() *Shell {
	return &Shell{}
}

// On answers commands starting with prefix with reply.
func (s *Shell) On(prefix string, reply Reply) *Shell {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{prefix, reply})
	return s
}

// Commands returns the commands run so far.
func (s *Shell) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Ran reports whether a command containing substr was run.
func (s *Shell) Ran(substr string) bool {
	for _, c := range s.Commands() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// Connect implements session.Connector.
func (s *Shell) Connect(_ context.Context, host, _, _ string, _ time.Duration) (session.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConnectErr != nil {
		return nil, s.ConnectErr
	}
	if host == "" {
		return nil, fmt.Errorf("empty host")
	}
	s.Connects++
	return &shellConn{shell: s}, nil
}

func (s *Shell) run(cmd string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	for _, r := range s.rules {
		if strings.HasPrefix(cmd, r.prefix) {
			return r.reply
		}
	}
	return Reply{}
}

type shellConn struct {
	shell *Shell
}

func (c *shellConn) OpenSession(context.Context) (session.Session, error) {
	c.shell.mu.Lock()
	defer c.shell.mu.Unlock()
	c.shell.Sessions++
	return &shellSession{shell: c.shell}, nil
}

func (c *shellConn) Close() error {
	c.shell.mu.Lock()
	defer c.shell.mu.Unlock()
	c.shell.Closed++
	return nil
}

type shellSession struct {
	shell *Shell
}

func (s *shellSession) Run(_ context.Context, cmd string, _ time.Duration) (int, string, error) {
	r := s.shell.run(cmd)
	return r.Status, r.Output, r.Err
}

func (s *shellSession) Close() error {
	return nil
}

// Terminal is a fake operator terminal.
type Terminal struct {
	LoginErr  error
	LoggedIn  bool
	Host      string
	User      string
	Params    map[string]any
	Commands  []string
	LogoffErr error
}

var _ session.Terminal = (*Terminal)(nil)

// Login implements session.Terminal.
func (t *Terminal) Login(_ context.Context, host, user, _ string, parameters map[string]any, _ time.Duration) (string, error) {
	if t.LoginErr != nil {
		return "", t.LoginErr
	}
	t.LoggedIn = true
	t.Host, t.User, t.Params = host, user, parameters
	return "READY;", nil
}

// SendCommand implements session.Terminal.
func (t *Terminal) SendCommand(_ context.Context, cmd string) (string, error) {
	t.Commands = append(t.Commands, cmd)
	return "", nil
}

// Logoff implements session.Terminal.
func (t *Terminal) Logoff(context.Context) error {
	if t.LogoffErr != nil {
		return t.LogoffErr
	}
	t.LoggedIn = false
	return nil
}

// LPAR is a fake logical partition.
type LPAR struct {
	State     string
	Calls     []string
	LoadErr   error
	Activated bool
}

var _ session.LPAR = (*LPAR)(nil)

// Status implements session.LPAR.
func (l *LPAR) Status(context.Context) (string, error) {
	return l.State, nil
}

// Activate implements session.LPAR.
func (l *LPAR) Activate(_ context.Context, force bool) error {
	l.Calls = append(l.Calls, fmt.Sprintf("activate force=%t", force))
	l.Activated = true
	l.State = "not-operating"
	return nil
}

// Load implements session.LPAR.
func (l *LPAR) Load(_ context.Context, devicenr string) error {
	l.Calls = append(l.Calls, "load "+devicenr)
	if l.LoadErr != nil {
		return l.LoadErr
	}
	l.State = "operating"
	return nil
}

// SCSILoad implements session.LPAR.
func (l *LPAR) SCSILoad(_ context.Context, devicenr, wwpn, lun string) error {
	l.Calls = append(l.Calls, fmt.Sprintf("scsi-load %s %s %s", devicenr, wwpn, lun))
	if l.LoadErr != nil {
		return l.LoadErr
	}
	l.State = "operating"
	return nil
}

// Stop implements session.LPAR.
func (l *LPAR) Stop(context.Context) error {
	l.Calls = append(l.Calls, "stop")
	l.State = "not-operating"
	return nil
}

// ResetClear implements session.LPAR.
func (l *LPAR) ResetClear(context.Context) error {
	l.Calls = append(l.Calls, "reset-clear")
	return nil
}

// Profile is a fake image profile.
type Profile struct {
	Props   session.ProfileProperties
	Updates int
}

var _ session.ImageProfile = (*Profile)(nil)

// Properties implements session.ImageProfile.
func (p *Profile) Properties(context.Context) (session.ProfileProperties, error) {
	return p.Props, nil
}

// Update implements session.ImageProfile.
func (p *Profile) Update(_ context.Context, props session.ProfileProperties) error {
	p.Props = props
	p.Updates++
	return nil
}

// Console is a fake management console serving one LPAR and its profile.
type Console struct {
	LPARs    map[string]*LPAR
	Profiles map[string]*Profile
	Port     int
	LoggedIn bool
}

var _ session.Console = (*Console)(nil)

// NewConsole creates a console knowing the partition name.
func NewConsole(name string, lpar *LPAR, profile *Profile) *Console {
	return &Console{
		LPARs:    map[string]*LPAR{name: lpar},
		Profiles: map[string]*Profile{name: profile},
	}
}

// Login implements session.Console.
func (c *Console) Login(_ context.Context, _, _, _ string, port int, _ time.Duration) error {
	c.Port = port
	c.LoggedIn = true
	return nil
}

// Logoff implements session.Console.
func (c *Console) Logoff(context.Context) error {
	c.LoggedIn = false
	return nil
}

// LPAR implements session.Console.
func (c *Console) LPAR(_ context.Context, cpc, name string) (session.LPAR, error) {
	l, ok := c.LPARs[name]
	if !ok || cpc == "" {
		return nil, fmt.Errorf("lpar %s/%s not found", cpc, name)
	}
	return l, nil
}

// ImageProfile implements session.Console.
func (c *Console) ImageProfile(_ context.Context, cpc, name string) (session.ImageProfile, error) {
	p, ok := c.Profiles[name]
	if !ok || cpc == "" {
		return nil, fmt.Errorf("profile %s/%s not found", cpc, name)
	}
	return p, nil
}
