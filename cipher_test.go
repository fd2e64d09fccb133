// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"
)

func cipherNaive(p []byte, m [4]byte, pos int) {
	for i := range p {
		p[i] ^= m[(pos+i)%4]
	}
}

func TestCipher(t *testing.T) {
	mask := [4]byte{0xa1, 0x5e, 0x07, 0xf3}
	for n := 0; n < 40; n++ {
		for offset := 0; offset < 6; offset++ {
			t.Run(fmt.Sprintf("%d/%d", n, offset), func(t *testing.T) {
				p := make([]byte, n)
				if _, err := rand.Read(p); err != nil {
					t.Fatal(err)
				}
				exp := append([]byte(nil), p...)
				act := append([]byte(nil), p...)
				cipherNaive(exp, mask, offset)
				Cipher(act, mask, offset)
				if !bytes.Equal(act, exp) {
					t.Errorf("Cipher():\nact:\t%x\nexp:\t%x", act, exp)
				}
				Cipher(act, mask, offset)
				if !bytes.Equal(act, p) {
					t.Errorf("Cipher() twice does not restore the payload")
				}
			})
		}
	}
}

func TestCipherChunked(t *testing.T) {
	mask := NewMask()
	p := bytes.Repeat([]byte("textsocket"), 10)
	exp := append([]byte(nil), p...)
	cipherNaive(exp, mask, 0)

	act := append([]byte(nil), p...)
	for i := 0; i < len(act); i += 7 {
		end := min(i+7, len(act))
		Cipher(act[i:end], mask, i)
	}
	if !bytes.Equal(act, exp) {
		t.Errorf("chunked Cipher():\nact:\t%x\nexp:\t%x", act, exp)
	}
}

func BenchmarkCipher(b *testing.B) {
	for _, size := range []int{7, 125, 1024, 4096} {
		p := make([]byte, size)
		mask := NewMask()
		b.Run(fmt.Sprintf("%d", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				Cipher(p, mask, 0)
			}
		})
	}
}
