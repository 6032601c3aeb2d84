package exec

import (
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/sdnlab/harness-go/pkg/log"
)

// Runner executes a shell command and returns its combined output. The
// emulator driver takes one so tests can intercept every command it issues.
type Runner func(command string) (string, error)

// Shell runs the given command through bash on the emulation host
func Shell(command string) (string, error) {
	cmd := exec.Command("/bin/bash", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.Errorf("command '%s' failed, err: %v, out: %s", command, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// ShellLogged runs the command and logs it, for calls whose side effects
// matter more than their output
func ShellLogged(run Runner, command string) error {
	log.Infof("[Exec]: %s", command)
	out, err := run(command)
	if err != nil {
		log.Error(strings.TrimSpace(out))
		return err
	}
	return nil
}
