// Program dbusping connects to a D-Bus bus and calls a method, to show
// how the package can be configured and used directly from the command
// line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/corvidae/dbus"
)

func main() {
	// By default an exit code is set to indicate a failure since there
	// are more failure scenarios to begin with.
	exitCode := 1
	defer func() { os.Exit(exitCode) }()

	addr := flag.String("addr", "", "bus address (unix:path=...)")
	system := flag.Bool("system", false, "use the system bus instead of the session bus")
	dest := flag.String("dest", "org.freedesktop.DBus", "call destination")
	path := flag.String("path", "/org/freedesktop/DBus", "object path")
	iface := flag.String("iface", "org.freedesktop.DBus", "interface")
	member := flag.String("member", "GetId", "method member")
	timeout := flag.Duration("timeout", 3*time.Second, "call timeout")
	flag.Parse()

	opts := []dbus.Option{
		dbus.WithCallTimeout(*timeout),
	}
	if *system {
		opts = append(opts, dbus.WithSystemBus())
	}
	if *addr != "" {
		opts = append(opts, dbus.WithAddress(*addr))
	}

	c, err := dbus.Dial(opts...)
	if err != nil {
		log.Print(err)
		return
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Print(err)
		}
	}()

	fmt.Printf("unique name: %s\n", c.BusName())

	body, err := c.CallMethod(context.Background(), *timeout, *dest, *path, *iface, *member)
	if err != nil {
		log.Print(err)
		return
	}
	for _, v := range body {
		fmt.Printf("%s: %v\n", v.Signature(), v)
	}

	exitCode = 0
}
