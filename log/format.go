package log

import "fmt"

// MessageFormatter renders the one-time boot/ready/fail banner lines
// each cmd/ binary logs around its startup sequence, distinct from the
// structured slog.Logger fields used for every per-request or
// per-delivery log line. Trimmed to the three states votecore's
// binaries actually emit (Start on boot, Ok once daemons are running,
// Fail on a startup abort) — the teacher's original formatter also
// offered Warn/Complete/Component/Active/Inactive for its broader
// request-lifecycle logging, none of which apply to a process that
// only ever boots once.
type MessageFormatter struct {
	component      string
	componentEmoji string
}

// NewMessageFormatter creates a new formatter instance.
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// WithComponent sets the component name and emoji.
func (f *MessageFormatter) WithComponent(name, emoji string) *MessageFormatter {
	f.component = name
	f.componentEmoji = emoji
	return f
}

// Start announces the beginning of the boot sequence.
func (f *MessageFormatter) Start(msg string) string {
	return fmt.Sprintf("%s %s: 🚀 %s", f.componentEmoji, f.component, msg)
}

// Ok announces that every daemon/handler is wired and the process is
// about to call Server.Run.
func (f *MessageFormatter) Ok(msg string) string {
	return fmt.Sprintf("%s %s: 👍 %s", f.componentEmoji, f.component, msg)
}

// Fail announces a boot-time abort (a dependency the binary cannot run
// without — Postgres, Redis, RabbitMQ — failed to come up) right
// before os.Exit(1).
func (f *MessageFormatter) Fail(msg string) string {
	return fmt.Sprintf("%s %s: ❌ %s", f.componentEmoji, f.component, msg)
}
