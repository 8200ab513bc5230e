// Package notify is the notification collaborator boundary. The engine
// decides when to notify; delivery is whatever the host system offers.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Notifier receives checkpoint command lifecycle events. Implementations
// must be non-blocking enough to sit inside the sequential pipeline.
type Notifier interface {
	CommandStarted(name string)
	CommandFinished(name string, passed bool)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) CommandStarted(string)        {}
func (Nop) CommandFinished(string, bool) {}

// Desktop delivers via the platform notifier when one exists on PATH
// (notify-send on Linux, osascript on macOS) and silently does nothing
// otherwise. Delivery failures are ignored; notifications are best-effort.
type Desktop struct {
	Title string
}

func (d Desktop) CommandStarted(name string) {
	d.send(fmt.Sprintf("Running %s", name))
}

func (d Desktop) CommandFinished(name string, passed bool) {
	if passed {
		d.send(fmt.Sprintf("%s passed", name))
	} else {
		d.send(fmt.Sprintf("%s failed", name))
	}
}

func (d Desktop) send(body string) {
	title := d.Title
	if title == "" {
		title = "hookgate"
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		if _, err := exec.LookPath("notify-send"); err != nil {
			return
		}
		cmd = exec.Command("notify-send", title, body)
	}
	_ = cmd.Run()
}
