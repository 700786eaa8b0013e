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
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MMF wraps a memory mapped view of a file. The copy engine's mapped-read
// and large-file strategies map the source once in the prologue and hand
// out read slices to each window/chunk, instead of doing a read syscall
// per chunk.
//
// The lock exists for the same reason it does upstream: some callers keep
// a reference to the slice across a cancellation boundary, and we want a
// racy Unmap to fail safe rather than panic with a segfault-equivalent.
type MMF struct {
	m        mmap.MMap
	isMapped bool
	lock     sync.RWMutex
}

// NewMMF maps length bytes of file starting at offset. Pass writable=true
// only when mapping a target that the caller intends to write to directly;
// the copy engine's chunked-streaming path never does this, it always
// writes through a regular io.Writer.
func NewMMF(file *os.File, writable bool, offset int64, length int64) (*MMF, error) {
	prot := mmap.RDONLY
	if writable {
		prot = mmap.RDWR
	}
	m, err := mmap.MapRegion(file, int(length), prot, 0, offset)
	if err != nil {
		return nil, err
	}
	return &MMF{m: m, isMapped: true}, nil
}

// Unmap releases the mapping. A second Unmap is a no-op that returns nil.
func (m *MMF) Unmap() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.isMapped {
		return nil
	}
	err := m.m.Unmap()
	m.isMapped = false
	m.m = nil
	return err
}

// UseMMF acquires read access to the mapping and reports whether it is
// still mapped. Callers must pair a true result with UnuseMMF.
func (m *MMF) UseMMF() bool {
	m.lock.RLock()
	if !m.isMapped {
		m.lock.RUnlock()
		return false
	}
	return true
}

// UnuseMMF releases the read access acquired by UseMMF.
func (m *MMF) UnuseMMF() {
	m.lock.RUnlock()
}

// Slice returns the memory mapped byte slice. Only valid while held
// between a successful UseMMF/UnuseMMF pair.
func (m *MMF) Slice() []byte {
	return m.m
}
