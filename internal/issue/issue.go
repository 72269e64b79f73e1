// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ConfigInvalidId
	PasswordFileNotFoundId
	SSHConnectFailedId
	SpawnFailedId
	DeviceNotReadyId
	SessionLostId
	CheckTimeoutId
	LauncherNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The config file could not be read or parsed.

## Things you can try:
- Generate a fresh default config:
~~~
$ dnoscheck config init
~~~

- Check the TOML syntax of your config file
- Print the effective configuration to see what was picked up:
~~~
$ dnoscheck config show
~~~`,
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# Invalid configuration!

The config file parsed fine but one or more values are out of range
or inconsistent.

## Common issues:
- ` + "`lomtu`" + ` set at or above ` + "`himtu`" + `
- Durations written without a unit (use "30s", not "30")
- An empty hostname for one of the three testbed routers
- SSH port outside 1-65535

## Things you can try:
- Compare against the annotated defaults:
~~~
$ dnoscheck config init --stdout
~~~

- Override a single value from the environment to bisect:
~~~
$ DNOSCHECK_CHECK_HIMTU=9100 dnoscheck check
~~~`,
	}

	passwordFileNotFoundIssue = &Issue{
		id: PasswordFileNotFoundId,
		mdMsg: `
# Password file not found!

SSH password authentication needs the password file configured under
` + "`[ssh] password_file`" + `, and it could not be read.

## Things you can try:
- Create the file with the device password as its only line:
~~~
$ printf '%s\n' 'the-password' > ~/.drivenets-default-dnroot-passwd.txt
$ chmod 600 ~/.drivenets-default-dnroot-passwd.txt
~~~

- Point the config at a different location:
~~~toml
[ssh]
password_file = "/path/to/passwd.txt"
~~~`,
	}

	sshConnectFailedIssue = &Issue{
		id: SSHConnectFailedId,
		mdMsg: `
# Could not connect to a testbed router!

The SSH dial to one of the configured hosts failed.

## Things you can try:
- Verify the host resolves and answers on the configured port:
~~~
$ ssh dnroot@<host>
~~~

- Check the username and password file in the ` + "`[ssh]`" + ` section
- Raise the connect timeout for slow management networks:
~~~toml
[ssh]
connect_timeout = "60s"
~~~`,
	}

	spawnFailedIssue = &Issue{
		id: SpawnFailedId,
		mdMsg: `
# Could not spawn the local session command!

A spawn override is configured for one of the routers, and starting
that command under a pty failed.

## Things you can try:
- Run the override command by hand to see its own error
- Check that the binary is on PATH and executable
- Remove the override to fall back to SSH:
~~~toml
[testbed.spawn_overrides]
client = ""
~~~`,
	}

	deviceNotReadyIssue = &Issue{
		id: DeviceNotReadyId,
		mdMsg: `
# Device CLI never became ready!

A session was established but the device prompt did not appear in time.
DNOS prints "DRIVENETS CLI Loading" while the CLI process starts; on a
busy or recovering device this can take a while.

## Things you can try:
- Log in interactively and confirm the CLI reaches a prompt
- Raise the session timeout:
~~~
$ DNOSCHECK_SSH_CONNECT_TIMEOUT=120s dnoscheck check
~~~

- Check the device is not mid-upgrade or mid-reload`,
	}

	sessionLostIssue = &Issue{
		id: SessionLostId,
		mdMsg: `
# Session to a router was lost mid-check!

The transport closed or stopped responding while the check was running.

## Things you can try:
- Re-run the check; a transient management-plane blip is the usual cause
- Watch the device console for reboots or process restarts
- Run with -v to see the last commands and output before the drop`,
	}

	checkTimeoutIssue = &Issue{
		id: CheckTimeoutId,
		mdMsg: `
# The MSS never converged!

The BGP session's MSS did not reach the expected value before the phase
timeout. This is the condition the check exists to catch, so it may be
a real PMTU discovery regression rather than a tooling problem.

## Things you can try:
- Inspect the session state on both endpoints:
~~~
# show system sessions | include 179
~~~

- Confirm the MTU change was committed on the middle router
- Make sure neighbor clearing is on so sessions re-negotiate immediately
  (it is by default; --clear-bgp-neighbors=false turns it off)
- Raise the phase timeouts if the lab converges slowly`,
	}

	launcherNotFoundIssue = &Issue{
		id: LauncherNotFoundId,
		mdMsg: `
# Test runner not found!

The launcher could not start tox on this machine.

## Things you can try:
- Install tox:
~~~
$ pip install tox
~~~

- Check that the directory next to the launcher binary still contains
  the tox configuration it was deployed with`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		configInvalidIssue.Id():        configInvalidIssue,
		passwordFileNotFoundIssue.Id(): passwordFileNotFoundIssue,
		sshConnectFailedIssue.Id():     sshConnectFailedIssue,
		spawnFailedIssue.Id():          spawnFailedIssue,
		deviceNotReadyIssue.Id():       deviceNotReadyIssue,
		sessionLostIssue.Id():          sessionLostIssue,
		checkTimeoutIssue.Id():         checkTimeoutIssue,
		launcherNotFoundIssue.Id():     launcherNotFoundIssue,
	}
)

func Values() []*Issue {
	return slices.Collect(maps.Values(issues))
}

func Get(id Id) *Issue {
	return issues[id]
}
