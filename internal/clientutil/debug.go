package clientutil

import (
	"github.com/kballard/go-shellquote"
)

// DebugFrame renders a raw outgoing/incoming wire frame shell-quoted,
// so a --verbose user can copy-paste it straight into `nc`/`telnet`
// for manual protocol debugging.
func DebugFrame(frame []byte) string {
	return shellquote.Join(string(frame))
}
