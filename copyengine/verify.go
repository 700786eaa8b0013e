package copyengine

import (
	"os"

	"github.com/pkg/errors"

	"github.com/geekfreaks/ingestengine/common"
)

var errVerificationMismatch = errors.New("verification mismatch")

// verify applies the transfer's verification policy after the rename,
// per §4.1. A non-nil error means the caller must remove the target
// and fail the transfer with kind verification_failed.
func verify(targetPath, sourcePath string, sourceSize int64, chunkSize int64, policy common.VerificationPolicy) error {
	switch policy {
	case common.EVerificationPolicy.SizeOnly():
		info, err := os.Stat(targetPath)
		if err != nil {
			return err
		}
		if info.Size() != sourceSize {
			return errVerificationMismatch
		}
		return nil

	case common.EVerificationPolicy.SampledHash():
		info, err := os.Stat(targetPath)
		if err != nil {
			return err
		}
		if info.Size() != sourceSize {
			return errVerificationMismatch
		}
		srcHash, err := sampledHash(sourcePath, sourceSize, chunkSize)
		if err != nil {
			return err
		}
		dstHash, err := sampledHash(targetPath, sourceSize, chunkSize)
		if err != nil {
			return err
		}
		if srcHash != dstHash {
			return errVerificationMismatch
		}
		return nil

	case common.EVerificationPolicy.FullHash():
		srcHash, err := fullHash(sourcePath)
		if err != nil {
			return err
		}
		dstHash, err := fullHash(targetPath)
		if err != nil {
			return err
		}
		if srcHash != dstHash {
			return errVerificationMismatch
		}
		return nil

	default:
		return nil
	}
}
