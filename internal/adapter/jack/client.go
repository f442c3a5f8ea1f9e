// Package jack adapts a libjack client to the converge and daemon interfaces.
package jack

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"syscall"

	"jackautoplug"
	"jackautoplug/converge"
	"jackautoplug/internal/adapter/jack/dispatch"

	gojack "github.com/xthexder/go-jack"
)

// eventBuffer bounds pending notifications.
const eventBuffer = 256

var _ converge.Graph = (*Client)(nil)

// Client is an open JACK client. Notifications reach the sink through a
// dispatch.Dispatcher, never from the JACK thread directly.
type Client struct {
	client *gojack.Client
	queue  *dispatch.Dispatcher

	shutdown     chan struct{}
	shutdownOnce sync.Once
	closeOnce    sync.Once
}

// Open connects to the JACK server as name. Unless startServer is set the
// server must already be running.
func Open(name string, startServer bool) (*Client, error) {
	gojack.SetErrorFunction(func(msg string) { slog.Debug("libjack error", "msg", msg) })
	gojack.SetInfoFunction(func(msg string) { slog.Debug("libjack info", "msg", msg) })

	opts := gojack.NoStartServer
	if startServer {
		opts = gojack.NullOption
	}
	client, status := gojack.ClientOpen(name, opts)
	if client == nil || status&gojack.Failure != 0 {
		return nil, fmt.Errorf("open jack client %q: %w", name, statusError(status))
	}
	if status&gojack.ServerStarted != 0 {
		slog.Info("started jack server")
	}

	return &Client{
		client:   client,
		queue:    dispatch.New(eventBuffer, slog.Default().With("client", client.GetName())),
		shutdown: make(chan struct{}),
	}, nil
}

// statusError picks the most specific message for a jack_status_t bitmask.
func statusError(status int) error {
	for _, bit := range []int{
		gojack.ServerFailed,
		gojack.ServerError,
		gojack.NameNotUnique,
		gojack.InvalidOption,
		gojack.VersionError,
		gojack.InitFailure,
		gojack.ShmFailure,
	} {
		if status&bit != 0 {
			return gojack.StrError(bit)
		}
	}
	if err := gojack.StrError(status); err != nil {
		return err
	}
	return errors.New("no client returned")
}

// --- converge.Graph ---

func (c *Client) PortExists(name string) bool {
	return c.client.GetPortByName(name) != nil
}

func (c *Client) IsConnected(src, dst string) (bool, error) {
	port := c.client.GetPortByName(src)
	if port == nil {
		return false, fmt.Errorf("source port %q disappeared", src)
	}
	return slices.Contains(port.GetConnections(), dst), nil
}

func (c *Client) Connect(src, dst string) error {
	code := c.client.Connect(src, dst)
	switch {
	case code == 0:
		return nil
	case code == int(syscall.EEXIST):
		return fmt.Errorf("connect %s -> %s: %w", src, dst, jackautoplug.ErrAlreadyConnected)
	case !c.PortExists(src) || !c.PortExists(dst):
		return fmt.Errorf("connect %s -> %s: port disappeared: %v", src, dst, gojack.StrError(code))
	default:
		return fmt.Errorf("connect %s -> %s: %w: %v", src, dst, jackautoplug.ErrConnectionRejected, gojack.StrError(code))
	}
}

// --- daemon.Runtime ---

// Activate installs the topology callbacks, activates the client and
// delivers the activation notification followed by every topology change.
func (c *Client) Activate(sink converge.Sink) error {
	// Queued first so it is dispatched ahead of any change.
	if !c.queue.Start(c, sink) {
		return errors.New("client already activated or closed")
	}

	abort := func(err error) error {
		c.queue.Stop()
		return err
	}

	if code := c.client.SetPortRegistrationCallback(func(gojack.PortId, bool) { c.queue.Notify() }); code != 0 {
		return abort(fmt.Errorf("set port registration callback: %w", gojack.StrError(code)))
	}
	if code := c.client.SetPortRenameCallback(func(gojack.PortId, string, string) { c.queue.Notify() }); code != 0 {
		return abort(fmt.Errorf("set port rename callback: %w", gojack.StrError(code)))
	}
	if code := c.client.SetPortConnectCallback(func(gojack.PortId, gojack.PortId, bool) { c.queue.Notify() }); code != 0 {
		return abort(fmt.Errorf("set port connect callback: %w", gojack.StrError(code)))
	}
	c.client.OnShutdown(func() {
		c.shutdownOnce.Do(func() { close(c.shutdown) })
	})

	if code := c.client.Activate(); code != 0 {
		return abort(fmt.Errorf("activate jack client: %w", gojack.StrError(code)))
	}
	c.queue.Open()
	return nil
}

// Shutdown is closed when the JACK server drops the client.
func (c *Client) Shutdown() <-chan struct{} {
	return c.shutdown
}

// Close waits for an in-flight pass, then closes the client, which also
// deactivates it.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.queue.Stop()

		if code := c.client.Close(); code != 0 {
			err = fmt.Errorf("close jack client: %w", gojack.StrError(code))
		}
	})
	return err
}
