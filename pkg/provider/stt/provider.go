// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber turns one complete recording into best-effort text. There is
// no streaming: the learner records a short attempt in the browser or on the
// command line and the whole clip is sent at once. Empty audio is a caller
// error ([ErrEmptyAudio]), never a service failure.
//
// Implementations must be safe for concurrent use and must not retry.
package stt

import (
	"bytes"
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a request carries no audio bytes.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Request is a single transcription request.
type Request struct {
	// Audio is the encoded recording (WAV, WebM, Ogg, MP3, ...).
	Audio []byte

	// Filename is sent to the backend as a format hint. When empty it is
	// derived from the audio's magic bytes by [Filename].
	Filename string

	// Language is an optional BCP-47 language hint such as "en" or "de".
	// Empty means the backend's default.
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe returns the text spoken in req.Audio. It returns
	// ErrEmptyAudio for an empty recording and a wrapped backend error when
	// the service fails.
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Filename returns req.Filename, or a name whose extension matches the
// container detected from the audio's leading bytes.
func Filename(req Request) string {
	if req.Filename != "" {
		return req.Filename
	}
	a := req.Audio
	switch {
	case len(a) >= 12 && bytes.Equal(a[0:4], []byte("RIFF")) && bytes.Equal(a[8:12], []byte("WAVE")):
		return "audio.wav"
	case len(a) >= 4 && bytes.Equal(a[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "audio.webm"
	case len(a) >= 4 && bytes.Equal(a[0:4], []byte("OggS")):
		return "audio.ogg"
	case len(a) >= 4 && bytes.Equal(a[0:4], []byte("fLaC")):
		return "audio.flac"
	case len(a) >= 3 && bytes.Equal(a[0:3], []byte("ID3")),
		len(a) >= 2 && a[0] == 0xFF && a[1]&0xE0 == 0xE0:
		return "audio.mp3"
	default:
		return "audio.wav"
	}
}
