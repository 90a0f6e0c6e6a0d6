package export

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// Launcher opens a file in the external editor application. The call blocks
// until the launch command itself returns, not until the document loads.
// The validate flow is specified against this seam so tests can substitute
// a fake that simulates (or withholds) the editor's write-back.
type Launcher interface {
	Open(appPath, filePath string) error
}

// launchError carries the invoked command and captured error text so the
// caller can attach them as structured detail.
type launchError struct {
	Command []string
	Detail  string
}

func (e *launchError) Error() string {
	return fmt.Sprintf("%s: %s", strings.Join(e.Command, " "), e.Detail)
}

// openLauncher shells out to the macOS `open -a` mechanism.
type openLauncher struct{}

func (openLauncher) Open(appPath, filePath string) error {
	command := []string{"open", "-a", appPath, filePath}
	cmd := exec.Command(command[0], command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err == nil {
		return nil
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = strings.TrimSpace(stdout.String())
	}
	if detail == "" {
		detail = "unknown open failure"
	}
	return &launchError{Command: command, Detail: detail}
}

// platformLauncher gates the real launcher to macOS; file-open validation
// has no equivalent mechanism elsewhere.
func platformLauncher() (Launcher, error) {
	if runtime.GOOS != "darwin" {
		return nil, cmderr.Usagef("export-amxd validation is currently supported on macOS only")
	}
	return openLauncher{}, nil
}
