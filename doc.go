// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

/*
Package textsocket implements the server side of a WebSocket-style text
protocol: the upgrade handshake and the frame codec.

The handshake is split between I/O and computation:

	req, err := textsocket.ReadHandshakeRequest(br)
	if err != nil {
		// handle err
	}
	resp, err := textsocket.Negotiate(req.Lines, "example.com", "9001")
	if err != nil {
		// nothing has been written yet
	}
	_, err = resp.WriteTo(conn)

Outbound text is split into frames by Encode; inbound frames are read with
ReadFrame (or Decode for buffers) and joined by a Reassembler:

	var r textsocket.Reassembler
	for {
		f, err := textsocket.ReadFrame(conn)
		if err != nil {
			// handle err
		}
		if f.Header.OpCode.IsControl() {
			continue
		}
		msg, ok, err := r.Push(f)
		...
	}

Package msutil ties both parts into sessions, wsutil keeps a registry of
them.
*/
package textsocket
