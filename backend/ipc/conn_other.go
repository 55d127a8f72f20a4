//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// SocketPathEnv overrides the socket location, e.g. to run isolated instances.
const SocketPathEnv = "CINE_SOCKET_PATH"

// socketPath is initialized based on platform conventions:
//   - macOS: ~/Library/Caches/cine/cine.sock
//   - Linux/Unix: $XDG_RUNTIME_DIR/cine.sock
//
// falling back to /tmp/cine-{uid}.sock.
var socketPath = "/tmp/cine.sock"

func init() {
	socketPath = defaultSocketPath()
}

func defaultSocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Caches", "cine", "cine.sock")
		}
	} else if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "cine.sock")
	}
	if u, err := user.Current(); err == nil {
		return fmt.Sprintf("/tmp/cine-%s.sock", u.Uid)
	}
	return "/tmp/cine.sock"
}

// Dial establishes a connection to the IPC socket.
func Dial() (net.Conn, error) {
	return net.Dial("unix", socketPath)
}

// Listen creates the Unix domain socket listener. A socket file left
// behind by an instance that did not shut down cleanly is replaced.
// The socket should be removed with DestroyConn when done.
func Listen() (net.Listener, error) {
	os.MkdirAll(filepath.Dir(socketPath), 0700)
	l, err := net.Listen("unix", socketPath)
	if err == nil {
		return l, nil
	}
	if c, dialErr := Dial(); dialErr == nil {
		c.Close()
		return nil, errors.New("IPC socket is in use by another instance")
	}
	os.Remove(socketPath)
	return net.Listen("unix", socketPath)
}

// DestroyConn removes the Unix socket file.
func DestroyConn() error {
	return os.Remove(socketPath)
}
