// Package dbus implements a client-side D-Bus connection: authentication,
// a signature-driven marshaling codec, and a session that multiplexes
// method calls, replies, errors and signals over a single Unix domain
// socket connection to a message bus.
//
// The package speaks the wire protocol described at
// https://dbus.freedesktop.org/doc/dbus-specification.html. Only the
// EXTERNAL authentication mechanism and unix:path= transports are
// supported; server-side (bus daemon) behavior is out of scope.
package dbus
