package common

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Settings is the persisted configuration surface described in §6. The
// core reads and writes it as plain JSON; the shell decides where the file
// lives and when to load/save it. There is no config framework here: a
// flat struct and encoding/json are enough for a single settings file.
type Settings struct {
	Mappings                      map[string]string  `json:"mappings"`
	ExcludedVolumes               []string            `json:"excluded_volumes"`
	ParallelCopies                int                 `json:"parallel_copies"`
	BufferSize                    int64               `json:"buffer_size"`
	ChunkSize                     int64               `json:"chunk_size"`
	VerifyMode                    VerificationPolicy  `json:"verify_mode"`
	DeleteSourceOnSuccess         bool                `json:"delete_source_on_success"`
	PollIntervalSeconds           int                 `json:"poll_interval_seconds"`
	AutoStartOnAttach             bool                `json:"auto_start_on_attach"`
	BandwidthLimitBytesPerSecond  int64               `json:"bandwidth_limit_bytes_per_second"`
	Language                      string              `json:"language"`
}

// DefaultSettings returns the design's defaults: 4 parallel copies, 8 MiB
// buffer, 1 MiB chunk, size_only verification, 5 s watcher-poll, unlimited
// bandwidth.
func DefaultSettings() Settings {
	return Settings{
		Mappings:                     map[string]string{},
		ExcludedVolumes:              []string{},
		ParallelCopies:               4,
		BufferSize:                   8 * 1024 * 1024,
		ChunkSize:                    1024 * 1024,
		VerifyMode:                   EVerificationPolicy.SizeOnly(),
		DeleteSourceOnSuccess:        false,
		PollIntervalSeconds:          5,
		AutoStartOnAttach:            true,
		BandwidthLimitBytesPerSecond: 0,
		Language:                     "en",
	}
}

// LoadSettings reads a Settings file; the decoded values are not
// range-checked. A missing file is not
// an error: the caller gets DefaultSettings back, matching the "settings
// persistence is the shell's job" stance in §1.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, errors.Wrap(err, "reading settings file")
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrap(err, "parsing settings file")
	}
	return s, nil
}

// SaveSettings writes s as indented UTF-8 JSON, creating parent directories
// as needed.
func SaveSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling settings")
	}
	if err := os.MkdirAll(filepath.Dir(path), DEFAULT_FILE_PERM|0111); err != nil {
		return errors.Wrap(err, "creating settings directory")
	}
	if err := os.WriteFile(path, data, DEFAULT_FILE_PERM); err != nil {
		return errors.Wrap(err, "writing settings file")
	}
	return nil
}
