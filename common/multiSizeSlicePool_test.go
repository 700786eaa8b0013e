// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiSliceSlotInfo(t *testing.T) {
	a := assert.New(t)
	const eightMB = 8 * 1024 * 1024

	cases := []struct {
		size                 uint32
		expectedSlotIndex    int
		expectedMaxCapInSlot int
	}{
		{1, 1, 1},
		{2, 2, 3},
		{3, 2, 3},
		{4, 3, 7},
		{5, 3, 7},
		{8, 4, 15},
		{9, 4, 15},
		{eightMB - 1, 23, eightMB - 1},
		{eightMB, 24, 2*eightMB - 1},
	}

	for _, x := range cases {
		slotIndex, maxCap := getSlotInfo(x.size)
		a.Equal(x.expectedSlotIndex, slotIndex, "size %d", x.size)
		a.Equal(x.expectedMaxCapInSlot, maxCap, "size %d", x.size)
	}
}

func TestMultiSizeSlicePoolRentReturnsExactLength(t *testing.T) {
	a := assert.New(t)
	pool := NewMultiSizeSlicePool(32 * 1024 * 1024)

	s := pool.RentSlice(4096)
	a.Len(s, 4096)
	pool.ReturnSlice(s)
}

func TestMultiSizeSlicePoolReusesReturnedSlices(t *testing.T) {
	a := assert.New(t)
	pool := NewMultiSizeSlicePool(1024 * 1024)

	s1 := pool.RentSlice(1024)
	cap1 := cap(s1)
	pool.ReturnSlice(s1)

	s2 := pool.RentSlice(1024)
	a.Equal(cap1, cap(s2))
}
