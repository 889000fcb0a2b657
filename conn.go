package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"
)

// handleConnection drives one accepted connection until the client
// disconnects or a fatal I/O error occurs. A panic anywhere in the command
// loop is recovered here so a single bad connection cannot take down the
// listener or corrupt the store.
func handleConnection(conn net.Conn, st *Store, stats *Stats, clock Clock, cfg *Config) {
	defer conn.Close()

	stats.connectionOpened()
	defer stats.connectionClosed()

	defer func() {
		if r := recover(); r != nil {
			logErrorf("recovered panic in connection handler %s: %v", conn.RemoteAddr(), r)
		}
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	c := newCodec(r, w)

	for {
		if cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}

		cmd, err := c.readCommand()
		if err != nil {
			if err == io.EOF {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return
			}

			var perr *protocolError
			if errors.As(err, &perr) {
				if werr := c.writeClientError(perr.msg); werr != nil {
					return
				}
				if ferr := c.flush(); ferr != nil {
					return
				}
				continue
			}
			var serr *serverSideError
			if errors.As(err, &serr) {
				if werr := c.writeServerError(serr.msg); werr != nil {
					return
				}
				if ferr := c.flush(); ferr != nil {
					return
				}
				continue
			}
			if errors.Is(err, errUnknownCommand) {
				if werr := c.writeError(); werr != nil {
					return
				}
				if ferr := c.flush(); ferr != nil {
					return
				}
				continue
			}
			return
		}

		if cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		}

		if err := dispatch(st, stats, clock, c, cmd); err != nil {
			return
		}
		if err := c.flush(); err != nil {
			return
		}
	}
}
