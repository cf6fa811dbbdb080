package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Clip holds decoded PCM audio alongside its source path. Detectors that
// shell out to external tools use Path; in-process detectors use Samples.
type Clip struct {
	Path       string
	SampleRate int
	Samples    []float32
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// ReadWAV decodes a PCM16 mono RIFF/WAVE file into float32 samples in
// [-1, 1]. Only the layout produced by ExtractWAV is supported.
func ReadWAV(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("read wav %s: not a RIFF/WAVE file", path)
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}
		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Clip{}, fmt.Errorf("read wav %s: short fmt chunk", path)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return Clip{}, fmt.Errorf("read wav %s: unsupported format %d (want PCM)", path, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}
		// Chunks are word aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || pcm == nil {
		return Clip{}, fmt.Errorf("read wav %s: missing fmt or data chunk", path)
	}
	if bits != 16 {
		return Clip{}, fmt.Errorf("read wav %s: unsupported bit depth %d (want 16)", path, bits)
	}
	if channels != 1 {
		return Clip{}, fmt.Errorf("read wav %s: unsupported channel count %d (want mono)", path, channels)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		value := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(value) / 32768
	}
	return Clip{Path: path, SampleRate: sampleRate, Samples: samples}, nil
}

// PCM16 re-encodes the clip samples as little-endian signed 16-bit PCM.
// Frame based detectors consume raw byte frames in this layout.
func (c Clip) PCM16() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, sample := range c.Samples {
		scaled := sample * 32767
		if scaled > 32767 {
			scaled = 32767
		}
		if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaled)))
	}
	return out
}

// WriteWAV encodes mono float32 samples as a PCM16 WAV file. Used by tests
// and by tooling that needs to round-trip detector input.
func WriteWAV(path string, sampleRate int, samples []float32) error {
	if sampleRate <= 0 {
		return errors.New("write wav: invalid sample rate")
	}
	clip := Clip{SampleRate: sampleRate, Samples: samples}
	pcm := clip.PCM16()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return os.WriteFile(path, append(header, pcm...), 0o644)
}
