// Package client implements the TCP client side of the wire protocol
// (§6), ported from the reference engine's KvsClient (src/client.rs):
// one connection, a buffered writer for requests and a streaming
// decoder for responses, with Get/Set/Remove each doing one
// write-flush-read round trip.
package client

import (
	"bufio"
	"net"

	"github.com/go-kvsdb/kvsdb/internal/engine"
	"github.com/go-kvsdb/kvsdb/internal/protocol"
)

// Client is a single connection to a kvs-server.
type Client struct {
	conn net.Conn
	bw   *bufio.Writer
	w    *protocol.Writer
	r    *protocol.Reader
}

// Dial connects to addr and returns a ready Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(conn)
	return &Client{
		conn: conn,
		bw:   bw,
		w:    protocol.NewWriter(bw),
		r:    protocol.NewReader(conn),
	}, nil
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := c.w.WriteRequest(req); err != nil {
		return protocol.Response{}, err
	}
	if err := c.bw.Flush(); err != nil {
		return protocol.Response{}, err
	}
	return c.r.ReadResponse()
}

// Get returns the value for key and true, or false if the server
// reports the key is absent.
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.roundTrip(protocol.Request{Op: protocol.OpGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if !resp.Ok {
		return "", false, engine.NewError(engine.CodeProtocol, resp.Err, nil)
	}
	return resp.Value, resp.Found, nil
}

// Set stores value under key on the server.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(protocol.Request{Op: protocol.OpSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return engine.NewError(engine.CodeProtocol, resp.Err, nil)
	}
	return nil
}

// Remove deletes key on the server. If the server reports the key was
// absent, the returned error satisfies errors.Is(err,
// engine.ErrRecordNotFound); any other server-side failure is returned
// with its message intact, per §7's "propagated verbatim to the
// client" rule for IO errors.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(protocol.Request{Op: protocol.OpRemove, Key: key})
	if err != nil {
		return err
	}
	if !resp.Ok {
		if resp.Err == engine.ErrRecordNotFound.Error() {
			return engine.ErrRecordNotFound
		}
		return engine.NewError(engine.CodeProtocol, resp.Err, nil)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
