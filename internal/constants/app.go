package constants

import "time"

// Sector cipher and medium sizing.
const (
	// SectorSize is the default aespipe-compatible sector size in bytes.
	// Every sector is encrypted independently with an IV derived from its
	// index, matching aespipe's single-key mode.
	SectorSize = 512

	// DefaultBufSize is the default size of the ArchiveWriter's staging
	// buffer, which collects tar bytes before they are handed to the
	// EncryptedSink. Must be a multiple of SectorSize.
	DefaultBufSize = 128 * 1024

	// MinBufSize is the smallest staging buffer size accepted by config
	// validation (one sector).
	MinBufSize = SectorSize

	// EncryptionChunkSize is the size of the pooled buffer used to read
	// plaintext into the sector cipher's sliding window.
	EncryptionChunkSize = 16 * 1024
)

// Catalogue / walker buffering.
const (
	// WalkerQueueDepth is the channel depth between the filesystem walker
	// goroutine and its downstream filter/queue stages.
	WalkerQueueDepth = 256

	// EventBusDefaultBuffer is the default per-subscriber channel depth for
	// the backup event bus.
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer caps the per-subscriber channel depth.
	EventBusMaxBuffer = 4096
)

// Medium changer retry knobs, grounded in the same "never hammer flaky
// hardware" instinct as the upload/download retry constants this package
// used to carry for cloud transfers.
const (
	// ChangerStatusTimeout bounds how long a single `chio status` call may run.
	ChangerStatusTimeout = 30 * time.Second

	// ChangerMaxRetries bounds retries of a changer status query before the
	// import-volumes command gives up.
	ChangerMaxRetries = 3

	// ChangerRetryDelay is the delay between changer status retries.
	ChangerRetryDelay = 2 * time.Second
)

// CleaningCartridgePrefix is excluded from import-volumes scans, matching
// the original implementation's exclude_prefix default.
const CleaningCartridgePrefix = "CLN"
