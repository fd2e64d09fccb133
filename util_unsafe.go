// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"unsafe"
)

// strToBytes returns the bytes of str without copying. The result must not
// be modified.
func strToBytes(str string) []byte {
	return unsafe.Slice(unsafe.StringData(str), len(str))
}

// btsToString returns bts as a string without copying. bts must not be
// modified afterwards.
func btsToString(bts []byte) string {
	return unsafe.String(unsafe.SliceData(bts), len(bts))
}
