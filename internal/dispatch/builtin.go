package dispatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SirJson/mpdshell/mpdprotocol"
)

// Help headings.
const (
	ShellHelpHeading    = "=== Shell Commands ==="
	ProtocolHelpHeading = "=== MPC Commands ==="
)

func (d *Dispatcher) execScript(c Client, param string) error {
	name, _, _ := strings.Cut(param, " ")
	path, err := d.scripts.Resolve(name)
	if err != nil {
		return err
	}
	if err := c.RunScript(path); err != nil {
		return err
	}
	c.LocalEcho("Running script " + filepath.Base(path))
	return nil
}

func (d *Dispatcher) listScripts(c Client, _ string) error {
	names, err := d.scripts.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		c.LocalEcho(fmt.Sprintf("No scripts in %s", d.scripts))
		return nil
	}

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(" - " + name)
	}
	c.LocalEcho(b.String())
	return nil
}

func (d *Dispatcher) shellHelp(c Client, _ string) error {
	var b strings.Builder
	b.WriteString(ShellHelpHeading)
	for _, name := range d.InternalCommands() {
		cmd := d.internal[name]
		fmt.Fprintf(&b, "\n%-18s %s", cmd.usage, cmd.description)
	}
	c.LocalEcho(b.String())
	return nil
}

func (d *Dispatcher) protocolHelp(c Client, _ string) error {
	c.LocalEcho(ProtocolHelpHeading + "\n" + strings.Join(mpdprotocol.KnownCommands(), "\n"))
	return nil
}
