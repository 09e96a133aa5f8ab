package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Format describes 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is what recordings are captured in and the player expects.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1, BitDepth: 16}

// bytesPerSecond returns the PCM data rate.
func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Duration returns how long n bytes of PCM play for.
func (f Format) Duration(n int) time.Duration {
	bps := f.bytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

const wavHeaderSize = 44

// writeWAVHeader writes a canonical 44-byte RIFF/WAVE header for
// dataSize bytes of PCM.
func writeWAVHeader(w io.Writer, f Format, dataSize int) error {
	blockAlign := f.Channels * f.BitDepth / 8
	hdr := make([]byte, wavHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(f.bytesPerSecond()))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(f.BitDepth))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))
	_, err := w.Write(hdr)
	return err
}

// encodeWAV returns pcm wrapped in a WAV container.
func encodeWAV(pcm []byte, f Format) []byte {
	out := &sliceWriter{buf: make([]byte, 0, wavHeaderSize+len(pcm))}
	_ = writeWAVHeader(out, f, len(pcm))
	return append(out.buf, pcm...)
}

type sliceWriter struct{ buf []byte }

func (s *sliceWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// decodeWAV walks the RIFF chunks and returns the format and PCM data.
func decodeWAV(wav []byte) (Format, []byte, error) {
	if len(wav) < 12 {
		return Format{}, nil, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Format{}, nil, errors.New("not a valid WAV file")
	}

	var (
		f      Format
		haveFm bool
	)
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || start+16 > len(wav) {
				return Format{}, nil, errors.New("fmt chunk too short")
			}
			if tag := binary.LittleEndian.Uint16(wav[start : start+2]); tag != 1 {
				return Format{}, nil, fmt.Errorf("unsupported WAV encoding %d", tag)
			}
			f.Channels = int(binary.LittleEndian.Uint16(wav[start+2 : start+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(wav[start+4 : start+8]))
			f.BitDepth = int(binary.LittleEndian.Uint16(wav[start+14 : start+16]))
			haveFm = true
		case "data":
			if !haveFm {
				return Format{}, nil, errors.New("data chunk before fmt chunk")
			}
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return f, wav[start:end], nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}
	return Format{}, nil, errors.New("data chunk not found in WAV")
}
