// Package dispatch classifies a line of user input and routes it: internal
// shell commands (prefixed with "!") run a local handler, known protocol
// commands are sent to the server, and anything else is rejected with an
// echo. Nothing here waits for the network.
package dispatch

import (
	"regexp"
	"slices"
	"strings"

	"github.com/SirJson/mpdshell/internal/logger"
	"github.com/SirJson/mpdshell/mpdprotocol"
)

// Echo texts for rejected input.
const (
	MsgInvalidCommand  = "Invalid command"
	MsgUnknownInternal = "Unknown internal command"
)

// InternalPrefix marks a shell command.
const InternalPrefix = "!"

var (
	internalPattern = regexp.MustCompile(`^!([a-z]+)(?:\s+(.*))?$`)
	protocolPattern = regexp.MustCompile(`^([a-z_]+)(?:\s+(.*))?$`)
)

// Client is the part of the protocol client the dispatcher drives.
type Client interface {
	Send(text string)
	LocalEcho(text string)
	RunScript(path string) error
}

// Handler runs an internal command. It echoes or sends on its own; a
// returned error is echoed by the dispatcher.
type Handler func(c Client, param string) error

// Action says what Dispatch did with a line.
type Action int

const (
	// ActionIgnored means the line was blank.
	ActionIgnored Action = iota
	// ActionInternal means an internal handler ran.
	ActionInternal
	// ActionSent means the line was queued for the server.
	ActionSent
	// ActionRejected means the line was answered with an echo only.
	ActionRejected
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionIgnored:
		return "ignored"
	case ActionInternal:
		return "internal"
	case ActionSent:
		return "sent"
	case ActionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result describes one dispatched line.
type Result struct {
	Action Action
	// Command is the command name without arguments or prefix.
	Command string
	// Terminate asks the front end to end the session. It is set after the
	// close command has been queued.
	Terminate bool
	// Err is the internal handler's error, already echoed.
	Err error
}

// Options configures a Dispatcher.
type Options struct {
	// ScriptDir is where !exec and !scripts look for scripts.
	ScriptDir string
	// EchoInput echoes protocol commands before sending them.
	EchoInput bool
}

type internalCommand struct {
	usage       string
	description string
	handler     Handler
}

// Dispatcher routes input lines to a client.
type Dispatcher struct {
	client   Client
	opts     Options
	scripts  ScriptDir
	internal map[string]internalCommand
}

// New creates a dispatcher with the built-in internal commands.
func New(client Client, opts Options) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		opts:    opts,
		scripts: ScriptDir(opts.ScriptDir),
	}
	d.internal = map[string]internalCommand{
		"exec":    {"!exec <script>", "Send every line of a script to the server", d.execScript},
		"scripts": {"!scripts", "List scripts in " + opts.ScriptDir, d.listScripts},
		"help":    {"!help", "Show shell commands", d.shellHelp},
		"mpchelp": {"!mpchelp", "Show protocol commands", d.protocolHelp},
	}
	return d
}

// Register adds or replaces an internal command.
func (d *Dispatcher) Register(name, usage, description string, h Handler) {
	d.internal[name] = internalCommand{usage: usage, description: description, handler: h}
}

// InternalCommands returns the sorted internal command names, without the prefix.
func (d *Dispatcher) InternalCommands() []string {
	names := make([]string, 0, len(d.internal))
	for name := range d.internal {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch classifies line and acts on it. Leading and trailing
// whitespace is stripped before matching, and the stripped line is what
// gets echoed and sent; inner whitespace is kept as typed.
func (d *Dispatcher) Dispatch(line string) Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{Action: ActionIgnored}
	}

	if m := internalPattern.FindStringSubmatch(line); m != nil {
		return d.runInternal(m[1], strings.TrimSpace(m[2]))
	}

	m := protocolPattern.FindStringSubmatch(line)
	if m == nil || !mpdprotocol.IsKnownCommand(m[1]) {
		logger.Debug("rejected input", "line", line)
		d.client.LocalEcho(MsgInvalidCommand)
		return Result{Action: ActionRejected}
	}

	if d.opts.EchoInput {
		d.client.LocalEcho(line)
	}
	d.client.Send(line)
	return Result{
		Action:    ActionSent,
		Command:   m[1],
		Terminate: line == mpdprotocol.CloseCommand,
	}
}

func (d *Dispatcher) runInternal(name, param string) Result {
	cmd, ok := d.internal[name]
	if !ok {
		d.client.LocalEcho(MsgUnknownInternal)
		return Result{Action: ActionRejected, Command: name}
	}

	res := Result{Action: ActionInternal, Command: name}
	if err := cmd.handler(d.client, param); err != nil {
		logger.Warning("internal command failed", "command", name, "error", err)
		d.client.LocalEcho("Error: " + err.Error())
		res.Err = err
	}
	return res
}
