// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

type RWTestCase struct {
	Data   []byte
	Header Header
	Err    bool
}

var mask1234 = [4]byte{1, 2, 3, 4}

var RWTestCases = []RWTestCase{
	{
		Data:   []byte{0x81, 0x05},
		Header: Header{Fin: true, OpCode: OpText, Length: 5},
	},
	{
		Data:   []byte{0x81, 0x85, 1, 2, 3, 4},
		Header: Header{Fin: true, OpCode: OpText, Masked: true, Mask: mask1234, Length: 5},
	},
	{
		Data:   []byte{0x01, 0x03},
		Header: Header{OpCode: OpText, Length: 3},
	},
	{
		Data:   []byte{0x00, 0x00},
		Header: Header{OpCode: OpContinuation},
	},
	{
		Data:   []byte{0x81, 0x7d},
		Header: Header{Fin: true, OpCode: OpText, Length: 125},
	},
	{
		Data:   []byte{0x81, 0x7e, 0x00, 0x7e},
		Header: Header{Fin: true, OpCode: OpText, Length: 126},
	},
	{
		Data:   []byte{0x81, 0xfe, 0xff, 0xff, 1, 2, 3, 4},
		Header: Header{Fin: true, OpCode: OpText, Masked: true, Mask: mask1234, Length: 65535},
	},
	{
		Data:   []byte{0x81, 0x7f, 0, 0, 0, 0, 0, 1, 0, 0},
		Header: Header{Fin: true, OpCode: OpText, Length: 65536},
	},
	{
		Data:   []byte{0x89, 0x80, 1, 2, 3, 4},
		Header: Header{Fin: true, OpCode: OpPing, Masked: true, Mask: mask1234},
	},
	{
		Data:   []byte{0xc1, 0x00},
		Header: Header{Fin: true, Rsv: 4, OpCode: OpText},
	},
	{
		Header: Header{Fin: true, OpCode: OpText, Length: -1},
		Err:    true,
	},
}

var RWBenchCases = []struct {
	label  string
	header Header
}{
	{
		"t-fin-125",
		Header{Fin: true, OpCode: OpText, Length: 0x7d},
	},
	{
		"t-fin-65535",
		Header{Fin: true, OpCode: OpText, Length: 0xffff},
	},
	{
		"t-fin-masked-2^32",
		Header{Fin: true, OpCode: OpText, Masked: true, Mask: mask1234, Length: 1 << 32},
	},
	{
		"c-nofin-5",
		Header{OpCode: OpContinuation, Length: 5},
	},
}
