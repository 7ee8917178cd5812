package socket

import (
	"os"
	"path/filepath"
)

// SocketName is the file name used inside the runtime directory.
const SocketName = "uair.sock"

// Path resolves the control socket location: POMOGAME_SOCKET if set, else the
// runtime directory, else TMPDIR, else /tmp.
func Path() string {
	if p := os.Getenv("POMOGAME_SOCKET"); p != "" {
		return p
	}
	if dir, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok {
		return filepath.Join(dir, SocketName)
	}
	if dir, ok := os.LookupEnv("TMPDIR"); ok {
		return filepath.Join(dir, SocketName)
	}
	return filepath.Join("/tmp", SocketName)
}
