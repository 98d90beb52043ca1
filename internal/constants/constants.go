// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort        = "8000"
	DefaultDBPath      = "whisperd.db"
	DefaultUploadsDir  = "data/uploads"
	DefaultOutputsDir  = "data/outputs"
	DefaultConcurrency = 2
	DefaultMaxFileSize = "500MB"
	DefaultHardTimeout = time.Hour
	DefaultChunkLength = 30
	DefaultWhisperBin  = "whisper-cli"
	DefaultFFmpegBin   = "ffmpeg"
	DefaultFFprobeBin  = "ffprobe"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// Queue and worker tuning
const (
	DefaultPollInterval = 1 * time.Second
	VisibilityTimeout   = 2 * time.Minute
	// MaxDeliveries bounds redelivery of abandoned messages: one retry,
	// then the job fails with an abandoned cause.
	MaxDeliveries = 2

	ReconcileInterval  = 30 * time.Second
	PendingGracePeriod = time.Minute

	// ProgressWriteInterval rate-limits progress writes to the registry;
	// callback ticks in between are coalesced.
	ProgressWriteInterval = time.Second
)

// Listing limits
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
