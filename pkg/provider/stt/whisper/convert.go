package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errNotWAV = errors.New("input is not a RIFF/WAV file")

// parseWAV extracts the raw PCM payload, sample rate, and channel count from
// a RIFF/WAV container. Only uncompressed 16-bit PCM (format tag 1) is
// supported; compressed containers must be routed to a server-side backend.
func parseWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, errNotWAV
	}

	var (
		fmtSeen    bool
		formatTag  uint16
		bitDepth   uint16
		numChans   uint16
		rate       uint32
		dataOffset = -1
		dataSize   uint32
	)

	// Walk the chunk list. Chunks are word-aligned; odd sizes carry a pad byte.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		if body+int(size) > len(data) {
			return nil, 0, 0, fmt.Errorf("wav chunk %q overruns file", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("wav fmt chunk too short")
			}
			fmtSeen = true
			formatTag = binary.LittleEndian.Uint16(data[body : body+2])
			numChans = binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitDepth = binary.LittleEndian.Uint16(data[body+14 : body+16])
		case "data":
			dataOffset = body
			dataSize = size
		}
		pos = body + int(size)
		if size%2 == 1 {
			pos++
		}
	}

	if !fmtSeen || dataOffset < 0 {
		return nil, 0, 0, errors.New("wav file missing fmt or data chunk")
	}
	if formatTag != 1 || bitDepth != bitsPerSample {
		return nil, 0, 0, fmt.Errorf("unsupported wav encoding: format=%d bits=%d", formatTag, bitDepth)
	}
	if numChans == 0 || rate == 0 {
		return nil, 0, 0, errors.New("wav file declares zero channels or sample rate")
	}

	return data[dataOffset : dataOffset+int(dataSize)], int(rate), int(numChans), nil
}

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	bps := bitsPerSample
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. Any trailing odd byte is
// silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame. If channels is 1 this is equivalent to
// pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resampleLinear converts samples from one sample rate to another using
// linear interpolation. Adequate for speech fed to whisper.cpp; clips are
// short and the quality loss is negligible compared to codec artefacts.
func resampleLinear(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	outLen := int(int64(len(samples)) * int64(to) / int64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	ratio := float64(from) / float64(to)
	for i := range outLen {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// trimText normalises backend output: surrounding whitespace is removed and
// internal runs of whitespace collapse to single spaces.
func trimText(s string) string {
	fields := splitFields(s)
	out := make([]byte, 0, len(s))
	for i, f := range fields {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, f...)
	}
	return string(out)
}

// splitFields is strings.Fields without the import churn in this file's
// hot path; kept tiny and allocation-friendly.
func splitFields(s string) []string {
	var fields []string
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}
