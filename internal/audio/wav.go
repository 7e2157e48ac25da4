package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	numChannels   = 1
	bitsPerSample = 16
	formatPCM     = 1
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	header := struct {
		RIFF          [4]byte
		RIFFSize      uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		RIFFSize:      36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   formatPCM,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * numChannels * bitsPerSample / 8),
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}

	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

// Float32ToPCM16LE converts normalized [-1, 1] samples to PCM16LE bytes.
// Out-of-range samples are clipped rather than wrapped.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * math.MaxInt16))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// PCM16LEToFloat32 converts PCM16LE bytes to normalized float samples.
// A trailing odd byte is dropped.
func PCM16LEToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float32(v) / math.MaxInt16
	}
	return out
}

// WAVInfo carries the fields decoded from a PCM WAV header.
type WAVInfo struct {
	SampleRate int
	DataSize   int
}

// DecodeWAVHeader reads the fixed 44-byte PCM header produced by
// WriteWAVPCM16LETo. It is a validation helper, not a general WAV parser.
func DecodeWAVHeader(wav []byte) (WAVInfo, error) {
	if len(wav) < 44 {
		return WAVInfo{}, fmt.Errorf("wav header too short: %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("not a RIFF/WAVE stream")
	}
	return WAVInfo{
		SampleRate: int(binary.LittleEndian.Uint32(wav[24:28])),
		DataSize:   int(binary.LittleEndian.Uint32(wav[40:44])),
	}, nil
}
