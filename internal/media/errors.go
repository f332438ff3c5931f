package media

import "errors"

// Media tool failures are fatal: a probe or clip subprocess that exits
// non-zero aborts the run, no per-window retry happens at this layer.
var (
	// ErrProbeFailed indicates ffprobe could not determine the media duration.
	ErrProbeFailed = errors.New("media probe failed")

	// ErrClipFailed indicates ffmpeg could not extract an audio segment.
	ErrClipFailed = errors.New("audio clip failed")

	// ErrFFmpegNotFound indicates the ffmpeg binary is not installed.
	ErrFFmpegNotFound = errors.New("ffmpeg not found")

	// ErrFFprobeNotFound indicates the ffprobe binary is not installed.
	ErrFFprobeNotFound = errors.New("ffprobe not found")
)
