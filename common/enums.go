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

// Package common holds the ambient concerns shared by every subsystem:
// logging, enums, configuration, system-info, pacing and the event bus.
package common

import (
	"reflect"

	"github.com/JeffreyRichter/enum/enum"
)

// LogLevel follows the same symbol-method enum idiom as the rest of this
// package: the zero value is the type, ELogLevel exposes named symbols, and
// String() goes through the reflection-based enum helper so that new
// symbols never need a parallel switch statement.
type LogLevel uint8

const (
	LogNone LogLevel = iota
	LogPanic
	LogFatal
	LogError
	LogWarning
	LogInfo
	LogDebug
)

var ELogLevel = LogLevel(LogNone)

func (LogLevel) None() LogLevel    { return LogLevel(LogNone) }
func (LogLevel) Panic() LogLevel   { return LogLevel(LogPanic) }
func (LogLevel) Fatal() LogLevel   { return LogLevel(LogFatal) }
func (LogLevel) Error() LogLevel   { return LogLevel(LogError) }
func (LogLevel) Warning() LogLevel { return LogLevel(LogWarning) }
func (LogLevel) Info() LogLevel    { return LogLevel(LogInfo) }
func (LogLevel) Debug() LogLevel   { return LogLevel(LogDebug) }

func (ll LogLevel) String() string {
	return enum.StringInt(ll, reflect.TypeOf(ll))
}

// Priority is the scheduling weight of a transfer; higher wins. The
// underlying order is the enum value itself, so comparisons in the
// priority queue are plain integer comparisons.
type Priority int32

const (
	priorityLow Priority = iota
	priorityNormal
	priorityHigh
	priorityUrgent
)

var EPriority = Priority(priorityNormal)

func (Priority) Low() Priority    { return priorityLow }
func (Priority) Normal() Priority { return priorityNormal }
func (Priority) High() Priority   { return priorityHigh }
func (Priority) Urgent() Priority { return priorityUrgent }

func (p Priority) String() string {
	return enum.StringInt(p, reflect.TypeOf(p))
}

// TransferStatus follows the monotonic path laid out in §3:
// Queued -> Running -> (Completed | Error | Cancelled | Skipped), with
// Running <-> Paused as the only reversible edge.
type TransferStatus int32

const (
	transferStatusQueued TransferStatus = iota
	transferStatusRunning
	transferStatusPaused
	transferStatusCompleted
	transferStatusError
	transferStatusCancelled
	transferStatusSkipped
)

var ETransferStatus = TransferStatus(transferStatusQueued)

func (TransferStatus) Queued() TransferStatus    { return transferStatusQueued }
func (TransferStatus) Running() TransferStatus   { return transferStatusRunning }
func (TransferStatus) Paused() TransferStatus    { return transferStatusPaused }
func (TransferStatus) Completed() TransferStatus { return transferStatusCompleted }
func (TransferStatus) Error() TransferStatus     { return transferStatusError }
func (TransferStatus) Cancelled() TransferStatus { return transferStatusCancelled }
func (TransferStatus) Skipped() TransferStatus   { return transferStatusSkipped }

func (s TransferStatus) String() string {
	return enum.StringInt(s, reflect.TypeOf(s))
}

// IsTerminal reports whether no further transition is legal from s.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case ETransferStatus.Completed(), ETransferStatus.Error(), ETransferStatus.Cancelled(), ETransferStatus.Skipped():
		return true
	default:
		return false
	}
}

// VerificationPolicy is the per-transfer choice of post-copy verification.
type VerificationPolicy int32

const (
	verificationNone VerificationPolicy = iota
	verificationSizeOnly
	verificationSampledHash
	verificationFullHash
)

var EVerificationPolicy = VerificationPolicy(verificationSizeOnly)

func (VerificationPolicy) None() VerificationPolicy         { return verificationNone }
func (VerificationPolicy) SizeOnly() VerificationPolicy     { return verificationSizeOnly }
func (VerificationPolicy) SampledHash() VerificationPolicy  { return verificationSampledHash }
func (VerificationPolicy) FullHash() VerificationPolicy     { return verificationFullHash }

func (v VerificationPolicy) String() string {
	return enum.StringInt(v, reflect.TypeOf(v))
}

func (v *VerificationPolicy) Parse(s string) error {
	val, err := enum.ParseInt(reflect.TypeOf(v), s, true, true)
	if err == nil {
		*v = val.(VerificationPolicy)
	}
	return err
}

// VolumeClassification is how the volume monitor classifies an attached
// storage volume, per §4.3.
type VolumeClassification int32

const (
	volumeLocal VolumeClassification = iota
	volumeRemovable
	volumeRemote
)

var EVolumeClassification = VolumeClassification(volumeLocal)

func (VolumeClassification) Local() VolumeClassification     { return volumeLocal }
func (VolumeClassification) Removable() VolumeClassification { return volumeRemovable }
func (VolumeClassification) Remote() VolumeClassification    { return volumeRemote }

func (c VolumeClassification) String() string {
	return enum.StringInt(c, reflect.TypeOf(c))
}

// ErrorKind is the stable tag carried alongside TransferRecord.ErrorMessage,
// per §7's error taxonomy.
type ErrorKind int32

const (
	errorKindNone ErrorKind = iota
	errorKindNotFound
	errorKindIORead
	errorKindIOWrite
	errorKindDiskSpace
	errorKindVerificationFailed
	errorKindTimeout
	errorKindCancelled
	errorKindSourceVolumeDetached
	errorKindInvalidState
)

var EErrorKind = ErrorKind(errorKindNone)

func (ErrorKind) None() ErrorKind                 { return errorKindNone }
func (ErrorKind) NotFound() ErrorKind              { return errorKindNotFound }
func (ErrorKind) IORead() ErrorKind                { return errorKindIORead }
func (ErrorKind) IOWrite() ErrorKind                { return errorKindIOWrite }
func (ErrorKind) DiskSpace() ErrorKind              { return errorKindDiskSpace }
func (ErrorKind) VerificationFailed() ErrorKind     { return errorKindVerificationFailed }
func (ErrorKind) Timeout() ErrorKind                { return errorKindTimeout }
func (ErrorKind) Cancelled() ErrorKind              { return errorKindCancelled }
func (ErrorKind) SourceVolumeDetached() ErrorKind   { return errorKindSourceVolumeDetached }
func (ErrorKind) InvalidState() ErrorKind           { return errorKindInvalidState }

// RetryEligible reports whether the coordinator should automatically
// re-queue a transfer that failed with this kind (§7).
func (k ErrorKind) RetryEligible() bool {
	return k == EErrorKind.Timeout()
}

func (k ErrorKind) String() string {
	return enum.StringInt(k, reflect.TypeOf(k))
}
