// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gobwas/httphead"
)

const (
	headerSecKey    = "Sec-WebSocket-Key"
	headerSecAccept = "Sec-WebSocket-Accept"

	// maxHandshakeLines limits the number of lines of an upgrade request.
	maxHandshakeLines = 128
)

const (
	textHeadStatus   = "HTTP/1.1 101 Web Socket Protocol Handshake\r\n"
	textHeadUpgrade  = "Upgrade: WebSocket\r\n"
	textHeadConn     = "Connection: Upgrade\r\n"
	textHeadOrigin   = "WebSocket-Origin: "
	textHeadLocation = "WebSocket-Location: ws://"
	textHeadAccept   = headerSecAccept + ": "
	crlf             = "\r\n"
)

// HandshakeRequest is the head of an upgrade request as read from the
// stream.
type HandshakeRequest struct {
	// RequestLine is the first line of the request, e.g. "GET /chat HTTP/1.1".
	RequestLine string
	Method      string
	URI         string

	// Lines holds every line of the head, RequestLine included, without
	// line terminators and without the closing blank line.
	Lines []string
}

// ReadHandshakeRequest reads lines from br until a blank line or the end of
// input. It returns ErrStreamClosed if br is exhausted before any line.
func ReadHandshakeRequest(br *bufio.Reader) (req HandshakeRequest, err error) {
	for {
		line, err := br.ReadSlice('\n')
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return req, ErrHandshakeTooLarge
		case errors.Is(err, io.EOF):
			if len(line) == 0 && len(req.Lines) == 0 {
				return req, ErrStreamClosed
			}
		case err != nil:
			return req, StreamFault("read handshake", err)
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(req.Lines) == 0 && err == nil {
				// Tolerate leading empty lines as RFC7230 does.
				continue
			}
			return req, nil
		}
		if len(req.Lines) == maxHandshakeLines {
			return req, ErrHandshakeTooLarge
		}
		if len(req.Lines) == 0 {
			req.RequestLine = string(line)
			if rl, ok := httphead.ParseRequestLine(line); ok {
				req.Method = string(rl.Method)
				req.URI = string(rl.URI)
			}
		}
		req.Lines = append(req.Lines, string(line))
		if err != nil {
			// End of input terminates the head like a blank line.
			return req, nil
		}
	}
}

// HandshakeResponse is the server answer to an upgrade request.
type HandshakeResponse struct {
	Host   string
	Port   string
	Accept string
}

// Negotiate scans request lines for the Sec-WebSocket-Key header and builds
// the upgrade response for the server reachable at host:port. Header names
// are matched case-insensitively and the value is trimmed. Scanning stops at
// the first blank line.
//
// Negotiate does no I/O: writing the response is up to the caller.
func Negotiate(lines []string, host, port string) (HandshakeResponse, error) {
	key, ok := FindHeader(lines, headerSecKey)
	if !ok || key == "" {
		return HandshakeResponse{}, ErrMissingKey
	}
	accept, err := ComputeAcceptKey(key)
	if err != nil {
		return HandshakeResponse{}, err
	}
	return HandshakeResponse{
		Host:   host,
		Port:   port,
		Accept: accept,
	}, nil
}

// FindHeader returns the trimmed value of the first header called name.
func FindHeader(lines []string, name string) (string, bool) {
	for _, line := range lines {
		if line == "" {
			break
		}
		// ParseHeaderLine canonicalizes the key in place, so it gets a copy.
		k, v, ok := httphead.ParseHeaderLine([]byte(line))
		if !ok {
			continue
		}
		if strings.EqualFold(string(k), name) {
			return strings.TrimSpace(string(v)), true
		}
	}
	return "", false
}

// Location returns the ws:// url advertised in WebSocket-Location.
func (r HandshakeResponse) Location() string {
	return "ws://" + r.Host + ":" + r.Port
}

// Bytes returns the response head, terminated by a blank line.
func (r HandshakeResponse) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.Bytes()
}

func (r HandshakeResponse) String() string {
	return string(r.Bytes())
}

// WriteTo writes the response head verbatim into w.
func (r HandshakeResponse) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.Grow(len(textHeadStatus) + len(textHeadUpgrade) + len(textHeadConn) +
		len(textHeadOrigin) + len(textHeadLocation) + len(textHeadAccept) +
		2*len(r.Host) + len(r.Port) + len(r.Accept) + 6*len(crlf))

	sb.WriteString(textHeadStatus)
	sb.WriteString(textHeadUpgrade)
	sb.WriteString(textHeadConn)
	sb.WriteString(textHeadOrigin)
	sb.WriteString(r.Host)
	sb.WriteString(crlf)
	sb.WriteString(textHeadLocation)
	sb.WriteString(r.Host)
	sb.WriteString(":")
	sb.WriteString(r.Port)
	sb.WriteString(crlf)
	sb.WriteString(textHeadAccept)
	sb.WriteString(r.Accept)
	sb.WriteString(crlf)
	sb.WriteString(crlf)

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
