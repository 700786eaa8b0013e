// Copyright © Microsoft <wastore@microsoft.com>
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
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ExclusiveStringMap backs the coordinator's at-most-once-per-fingerprint
// guard (§4.2): Add succeeds only if the key is not already present,
// which is exactly the semantics the fingerprint check needs.
type ExclusiveStringMap struct {
	lock *sync.Mutex
	m    map[string]struct{}
}

// NewExclusiveStringMap returns an empty map. Keys are always compared
// case-sensitively: a fingerprint is (basename, size), and basenames are
// taken verbatim from the watcher, not normalized for a particular
// filesystem's case sensitivity.
func NewExclusiveStringMap() *ExclusiveStringMap {
	return &ExclusiveStringMap{
		lock: &sync.Mutex{},
		m:    make(map[string]struct{}),
	}
}

var ErrDuplicateFingerprint = errors.New("a transfer with this fingerprint is already queued or running")

// Fingerprint builds the (basename, size) key §4.2 describes.
func Fingerprint(basename string, size int64) string {
	return fmt.Sprintf("%s\x00%d", basename, size)
}

// Add succeeds if and only if key is not currently in the map.
func (e *ExclusiveStringMap) Add(key string) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if _, alreadyThere := e.m[key]; alreadyThere {
		return ErrDuplicateFingerprint
	}
	e.m[key] = struct{}{}
	return nil
}

// Remove evicts key, e.g. once its transfer reaches a terminal state.
func (e *ExclusiveStringMap) Remove(key string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.m, key)
}

// Contains reports whether key is currently held.
func (e *ExclusiveStringMap) Contains(key string) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	_, ok := e.m[key]
	return ok
}
