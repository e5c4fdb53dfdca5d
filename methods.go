package dbus

import (
	"context"
	"fmt"
)

// Standard org.freedesktop.DBus bus object addresses, used by every
// method in this file.
const (
	busDestination = "org.freedesktop.DBus"
	busPath        = "/org/freedesktop/DBus"
	busInterface   = "org.freedesktop.DBus"
)

// RequestNameFlag bits accepted by RequestName.
type RequestNameFlag uint32

const (
	NameFlagAllowReplacement RequestNameFlag = 1 << iota
	NameFlagReplaceExisting
	NameFlagDoNotQueue
)

// RequestNameResult is the outcome code returned by RequestName.
type RequestNameResult uint32

const (
	NameResultPrimaryOwner RequestNameResult = 1 + iota
	NameResultInQueue
	NameResultExists
	NameResultAlreadyOwner
)

func (c *Conn) busCall(ctx context.Context, member string, args ...Value) ([]Value, error) {
	return c.CallMethod(ctx, 0, busDestination, busPath, busInterface, member, args...)
}

// Hello is the first call every connection must make; it claims a
// unique connection name and returns it.
func (c *Conn) Hello(ctx context.Context) (string, error) {
	body, err := c.busCall(ctx, "Hello")
	if err != nil {
		return "", err
	}
	return firstString(body, "Hello")
}

// RequestName asks the bus to assign name to this connection.
func (c *Conn) RequestName(ctx context.Context, name string, flags RequestNameFlag) (RequestNameResult, error) {
	body, err := c.busCall(ctx, "RequestName", String(name), Uint32(uint32(flags)))
	if err != nil {
		return 0, err
	}
	u, err := firstUint32(body, "RequestName")
	return RequestNameResult(u), err
}

// ReleaseName releases a previously acquired name.
func (c *Conn) ReleaseName(ctx context.Context, name string) error {
	_, err := c.busCall(ctx, "ReleaseName", String(name))
	return err
}

// ListNames returns every name currently registered on the bus.
func (c *Conn) ListNames(ctx context.Context) ([]string, error) {
	body, err := c.busCall(ctx, "ListNames")
	if err != nil {
		return nil, err
	}
	return stringArray(body, "ListNames")
}

// ListActivatableNames returns every name the bus can activate a
// service for on demand.
func (c *Conn) ListActivatableNames(ctx context.Context) ([]string, error) {
	body, err := c.busCall(ctx, "ListActivatableNames")
	if err != nil {
		return nil, err
	}
	return stringArray(body, "ListActivatableNames")
}

// NameHasOwner reports whether name currently has an owner.
func (c *Conn) NameHasOwner(ctx context.Context, name string) (bool, error) {
	body, err := c.busCall(ctx, "NameHasOwner", String(name))
	if err != nil {
		return false, err
	}
	if len(body) != 1 {
		return false, fmt.Errorf("dbus: NameHasOwner: unexpected reply shape")
	}
	b, ok := body[0].(boolValue)
	if !ok {
		return false, fmt.Errorf("dbus: NameHasOwner: unexpected reply type")
	}
	return bool(b), nil
}

// GetNameOwner returns the unique connection name that owns name.
func (c *Conn) GetNameOwner(ctx context.Context, name string) (string, error) {
	body, err := c.busCall(ctx, "GetNameOwner", String(name))
	if err != nil {
		return "", err
	}
	return firstString(body, "GetNameOwner")
}

// ServiceStartResult is the outcome code returned by StartServiceByName.
type ServiceStartResult uint32

const (
	StartResultSuccess ServiceStartResult = 1 + iota
	StartResultAlreadyRunning
)

// StartServiceByName asks the bus to activate a service that owns
// name, if it is not already running.
func (c *Conn) StartServiceByName(ctx context.Context, name string, flags uint32) (ServiceStartResult, error) {
	body, err := c.busCall(ctx, "StartServiceByName", String(name), Uint32(flags))
	if err != nil {
		return 0, err
	}
	u, err := firstUint32(body, "StartServiceByName")
	return ServiceStartResult(u), err
}

// AddMatch registers rule with the bus so matching signals and
// broadcasted method calls are routed to this connection. Conn.Signals
// calls this automatically for its own subscriptions; exported so
// callers can also register raw rule strings directly.
func (c *Conn) AddMatch(ctx context.Context, rule string) error {
	_, err := c.busCall(ctx, "AddMatch", String(rule))
	return err
}

// RemoveMatch reverses a prior AddMatch.
func (c *Conn) RemoveMatch(ctx context.Context, rule string) error {
	_, err := c.busCall(ctx, "RemoveMatch", String(rule))
	return err
}

// GetID returns the bus daemon's own unique identifier.
func (c *Conn) GetID(ctx context.Context) (string, error) {
	body, err := c.busCall(ctx, "GetId")
	if err != nil {
		return "", err
	}
	return firstString(body, "GetId")
}

func firstString(body []Value, member string) (string, error) {
	if len(body) != 1 {
		return "", fmt.Errorf("dbus: %s: unexpected reply shape", member)
	}
	s, ok := body[0].(stringValue)
	if !ok {
		return "", fmt.Errorf("dbus: %s: unexpected reply type", member)
	}
	return string(s), nil
}

func firstUint32(body []Value, member string) (uint32, error) {
	if len(body) != 1 {
		return 0, fmt.Errorf("dbus: %s: unexpected reply shape", member)
	}
	u, ok := body[0].(uint32Value)
	if !ok {
		return 0, fmt.Errorf("dbus: %s: unexpected reply type", member)
	}
	return uint32(u), nil
}

func stringArray(body []Value, member string) ([]string, error) {
	if len(body) != 1 {
		return nil, fmt.Errorf("dbus: %s: unexpected reply shape", member)
	}
	arr, ok := body[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("dbus: %s: unexpected reply type", member)
	}
	out := make([]string, 0, len(arr.Items))
	for _, it := range arr.Items {
		s, ok := it.(stringValue)
		if !ok {
			return nil, fmt.Errorf("dbus: %s: unexpected element type", member)
		}
		out = append(out, string(s))
	}
	return out, nil
}
