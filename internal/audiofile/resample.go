package audiofile

import (
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/fieldcut/fieldcut/internal/errors"
)

// ResampleForAnalysis converts a mono buffer from srcRate to dstRate. The
// input is returned unchanged when the rates already match.
func ResampleForAnalysis(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate == dstRate {
		return samples, nil
	}
	if srcRate <= 0 || dstRate <= 0 {
		return nil, errors.Newf("invalid resample rates: %d -> %d", srcRate, dstRate).
			Component("audiofile").
			Category(errors.CategoryConfiguration).
			Build()
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryAudio).
			Context("src_rate", srcRate).
			Context("dst_rate", dstRate).
			Build()
	}

	output, err := resampler.Process(samples)
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryAudio).
			Build()
	}

	// The resampler holds back filter-latency samples. Push silence through
	// until the expected output length is reached, then trim the padding.
	expected := int(math.Ceil(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	silence := make([]float64, srcRate/10+1)
	for attempts := 0; len(output) < expected && attempts < 8; attempts++ {
		tail, err := resampler.Process(silence)
		if err != nil {
			return nil, errors.New(err).
				Component("audiofile").
				Category(errors.CategoryAudio).
				Build()
		}
		output = append(output, tail...)
	}
	if len(output) > expected {
		output = output[:expected]
	}
	return output, nil
}
