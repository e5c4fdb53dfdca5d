package dbus

import (
	"fmt"
	"net"
	"os"
	"strings"
)

const (
	defaultSystemBusAddress = "unix:path=/run/dbus/system_bus_socket"
	unixPathPrefix          = "unix:path="
)

// systemBusAddress resolves the system bus address from
// DBUS_SYSTEM_BUS_ADDRESS, falling back to the well-known path.
func systemBusAddress() string {
	if addr := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); addr != "" {
		return addr
	}
	return defaultSystemBusAddress
}

// sessionBusAddress resolves the session bus address from
// DBUS_SESSION_BUS_ADDRESS, falling back to <runtime dir>/bus where the
// runtime dir is XDG_USER_DIR or /run/user/<uid>.
func sessionBusAddress() string {
	if addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); addr != "" {
		return addr
	}
	runtimeDir := os.Getenv("XDG_USER_DIR")
	if runtimeDir == "" {
		runtimeDir = fmt.Sprintf("/run/user/%d", os.Getuid())
	}
	return "unix:path=" + strings.TrimRight(runtimeDir, "/") + "/bus"
}

// dialAddress connects to a D-Bus address string. Only the unix:path=
// scheme is supported; anything else fails with "address type not
// supported".
func dialAddress(addr string) (net.Conn, error) {
	if !strings.HasPrefix(addr, unixPathPrefix) {
		return nil, fmt.Errorf("dbus: address type not supported: %q", addr)
	}
	path := addr[len(unixPathPrefix):]
	if i := strings.IndexByte(path, ','); i >= 0 {
		path = path[:i]
	}
	return net.Dial("unix", path)
}
