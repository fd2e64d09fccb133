// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"io"
)

const (
	// RFC6455: The value of this header field MUST be a nonce consisting of a
	// randomly selected 16-byte value that has been base64-encoded (see
	// Section 4 of [RFC4648]).
	nonceKeySize = 16

	// RFC6455: The value of this header field is constructed by concatenating
	// /key/, defined above in step 4 in Section 4.2.2, with the string
	// "258EAFA5-E914-47DA-95CA-C5AB0DC85B11", taking the SHA-1 hash of this
	// concatenated value to obtain a 20-byte value and base64-encoding (see
	// Section 4 of [RFC4648]) this 20-byte hash.
	acceptSize = 28 // base64.StdEncoding.EncodedLen(sha1.Size)
)

var webSocketMagic = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// ComputeAcceptKey returns the Sec-WebSocket-Accept value for the client key.
// The value is recomputed on every call.
func ComputeAcceptKey(clientKey string) (string, error) {
	if clientKey == "" {
		return "", ErrMissingKey
	}
	var dst [acceptSize]byte
	initAcceptFromNonce(dst[:], strToBytes(clientKey))
	return string(dst[:]), nil
}

// CheckAcceptKey reports whether accept was derived from clientKey.
func CheckAcceptKey(clientKey, accept string) bool {
	expect, err := ComputeAcceptKey(clientKey)
	return err == nil && expect == accept
}

// initAcceptFromNonce fills given slice with accept bytes generated from
// given nonce bytes. Given buffer should be exactly acceptSize bytes.
func initAcceptFromNonce(accept, nonce []byte) {
	if len(accept) != acceptSize {
		panic("accept buffer is invalid")
	}

	h := sha1.New()
	h.Write(nonce)
	h.Write(webSocketMagic)

	var sb [sha1.Size]byte
	sum := h.Sum(sb[:0])

	base64.StdEncoding.Encode(accept, sum)
}

// NewNonce returns a random base64 encoded 16-byte key, as a client sends it
// in Sec-WebSocket-Key.
func NewNonce() (string, error) {
	var p [nonceKeySize]byte
	if _, err := io.ReadFull(rand.Reader, p[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(p[:]), nil
}

func mustMakeNonce() []byte {
	nonce, err := NewNonce()
	if err != nil {
		panic(err)
	}
	return []byte(nonce)
}
