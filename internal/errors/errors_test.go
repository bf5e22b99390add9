package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	ee := Newf("decode failed: %s", "take1.wav").Build()

	assert.Equal(t, "decode failed: take1.wav", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderMetadata(t *testing.T) {
	ee := New(NewStd("short read")).
		Component("audiofile").
		Category(CategoryFileParsing).
		Context("sample_rate", 48000).
		FileContext("/tmp/take1.wav", 1024).
		Build()

	assert.Equal(t, "audiofile", ee.Component)
	assert.Equal(t, "file-parsing", ee.GetCategory())

	v, ok := ee.GetContext("sample_rate")
	require.True(t, ok)
	assert.Equal(t, 48000, v)

	v, ok = ee.GetContext("file_path")
	require.True(t, ok)
	assert.Equal(t, "/tmp/take1.wav", v)

	_, ok = ee.GetContext("missing")
	assert.False(t, ok)
}

func TestUnwrapAndIs(t *testing.T) {
	sentinel := NewStd("file not found")
	ee := New(fmt.Errorf("open recording: %w", sentinel)).
		Category(CategoryFileIO).
		Build()

	assert.True(t, Is(ee, sentinel))

	var target *EnhancedError
	wrapped := fmt.Errorf("analysis: %w", ee)
	require.True(t, As(wrapped, &target))
	assert.Equal(t, CategoryFileIO, target.Category)
}

func TestIsCategory(t *testing.T) {
	ee := New(NewStd("bad mode")).Category(CategoryValidation).Build()
	wrapped := fmt.Errorf("validate: %w", ee)

	assert.True(t, IsCategory(wrapped, CategoryValidation))
	assert.False(t, IsCategory(wrapped, CategoryFileIO))
	assert.False(t, IsCategory(NewStd("plain"), CategoryValidation))
	assert.False(t, IsCategory(nil, CategoryValidation))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(New(NewStd("x")).Category(CategoryValidation).Build()))
	assert.True(t, IsValidation(New(NewStd("x")).Category(CategoryConfiguration).Build()))
	assert.False(t, IsValidation(New(NewStd("x")).Category(CategoryDSP).Build()))
}
