// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/malwarefrank/ursadb/dispatch"
)

// Serve accepts connections on ln until ctx is cancelled, handing each
// request frame (a command string terminated by ';') to broker and
// writing back its framed reply.
func Serve(ctx context.Context, ln net.Listener, broker *dispatch.Broker) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go handleConn(conn, broker)
	}
}

func handleConn(conn net.Conn, broker *dispatch.Broker) {
	defer conn.Close()
	activeConnections.Inc()
	defer activeConnections.Dec()

	connID := conn.RemoteAddr().String()
	r := bufio.NewReader(conn)
	for {
		request, err := r.ReadString(';')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("connection read failed", "conn", connID, "err", err)
			}
			return
		}
		reply := broker.Submit(connID, request)
		if _, err := conn.Write([]byte(reply)); err != nil {
			slog.Warn("connection write failed", "conn", connID, "err", err)
			return
		}
	}
}
