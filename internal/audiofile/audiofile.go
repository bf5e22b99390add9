// Package audiofile is the decoding boundary: it reads WAV and FLAC files
// into mono float64 buffers for analysis and answers cheap metadata queries
// about them.
package audiofile

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/patrickmn/go-cache"
	"github.com/tphakala/flac"

	"github.com/fieldcut/fieldcut/internal/errors"
	"github.com/fieldcut/fieldcut/internal/logging"
)

// AudioInfo holds metadata about an audio file.
type AudioInfo struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// Duration returns the audio length in seconds.
func (a AudioInfo) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.TotalSamples) / float64(a.SampleRate)
}

var logger *slog.Logger

// Directory scans touch each file twice (validation, then analysis), so info
// lookups are cached briefly per path.
var infoCache = cache.New(5*time.Minute, 10*time.Minute)

func init() {
	logger = logging.ForService("audiofile")
}

// SupportedExtension reports whether the path names a decodable audio file.
func SupportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".flac":
		return true
	}
	return false
}

// GetAudioInfo returns metadata for a WAV or FLAC file. Results are cached
// per path for a few minutes.
func GetAudioInfo(path string) (AudioInfo, error) {
	if cached, found := infoCache.Get(path); found {
		if info, ok := cached.(AudioInfo); ok {
			return info, nil
		}
	}

	info, err := readAudioInfo(path)
	if err != nil {
		return AudioInfo{}, err
	}
	infoCache.Set(path, info, cache.DefaultExpiration)
	return info, nil
}

func readAudioInfo(path string) (AudioInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVInfo(file)
	case ".flac":
		return readFLACInfo(file)
	default:
		return AudioInfo{}, errors.Newf("unsupported audio format: %s", filepath.Ext(path)).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}
}

func readWAVInfo(file *os.File) (AudioInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return AudioInfo{}, errors.Newf("invalid WAV file format").
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return AudioInfo{}, errors.Newf("unsupported WAV bit depth: %d", decoder.BitDepth).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if decoder.NumChans < 1 {
		return AudioInfo{}, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}

	if err := decoder.FwdToPCM(); err != nil {
		return AudioInfo{}, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}

	// Per-channel sample count from the data chunk, not the file size,
	// which includes the RIFF header and any non-data chunks.
	bytesPerSample := int(decoder.BitDepth / 8)
	totalSamples := int(decoder.PCMLen()) / bytesPerSample / int(decoder.NumChans)

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func readFLACInfo(file *os.File) (AudioInfo, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return AudioInfo{}, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return AudioInfo{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}

// ReadMono decodes the whole file into a mono float64 buffer in [-1, 1),
// averaging channels, and returns it with the file's native sample rate.
func ReadMono(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVMono(file)
	case ".flac":
		return readFLACMono(file)
	default:
		return nil, 0, errors.Newf("unsupported audio format: %s", filepath.Ext(path)).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}
}

func readWAVMono(file *os.File) ([]float64, int, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, errors.Newf("input is not a valid WAV audio file").
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}

	divisor, err := audioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, err
	}

	numChans := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)

	buf := &audio.IntBuffer{
		Data:   make([]int, 262144),
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: numChans},
	}

	var samples []float64
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, 0, errors.New(err).
				Component("audiofile").
				Category(errors.CategoryFileParsing).
				Build()
		}
		if n == 0 {
			break
		}
		samples = appendMono(samples, buf.Data[:n], numChans, divisor)
	}
	return samples, sampleRate, nil
}

func readFLACMono(file *os.File) ([]float64, int, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, 0, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}

	divisor, err := audioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, 0, err
	}

	bytesPerSample := decoder.BitsPerSample / 8
	numChans := decoder.NChannels

	var samples []float64
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, errors.New(err).
				Component("audiofile").
				Category(errors.CategoryFileParsing).
				Build()
		}

		frameStride := bytesPerSample * numChans
		for i := 0; i+frameStride <= len(frame); i += frameStride {
			var sum float64
			for ch := 0; ch < numChans; ch++ {
				off := i + ch*bytesPerSample
				var sample int32
				switch decoder.BitsPerSample {
				case 16:
					sample = int32(int16(binary.LittleEndian.Uint16(frame[off:])))
				case 24:
					sample = (int32(frame[off]) | int32(frame[off+1])<<8 | int32(frame[off+2])<<16) << 8 >> 8
				case 32:
					sample = int32(binary.LittleEndian.Uint32(frame[off:]))
				}
				sum += float64(sample) / divisor
			}
			samples = append(samples, sum/float64(numChans))
		}
	}
	return samples, decoder.SampleRate, nil
}

// appendMono averages interleaved integer frames down to mono floats.
func appendMono(dst []float64, data []int, numChans int, divisor float64) []float64 {
	if numChans <= 1 {
		for _, s := range data {
			dst = append(dst, float64(s)/divisor)
		}
		return dst
	}
	for i := 0; i+numChans <= len(data); i += numChans {
		var sum float64
		for ch := 0; ch < numChans; ch++ {
			sum += float64(data[i+ch]) / divisor
		}
		dst = append(dst, sum/float64(numChans))
	}
	return dst
}

func audioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio file bit depth: %d", bitDepth).
			Component("audiofile").
			Category(errors.CategoryFileParsing).
			Build()
	}
}

// ValidateAudioFile confirms the file exists, is decodable and carries at
// least one sample. Used before queueing files for analysis.
func ValidateAudioFile(path string) error {
	info, err := GetAudioInfo(path)
	if err != nil {
		return err
	}
	if info.TotalSamples <= 0 {
		return errors.Newf("audio file contains no samples").
			Component("audiofile").
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Build()
	}
	logger.Debug("validated audio file",
		"path", path,
		"sample_rate", info.SampleRate,
		"channels", info.NumChannels,
		"duration_s", info.Duration())
	return nil
}
