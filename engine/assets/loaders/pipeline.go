package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer"
)

// PipelineAsset is the content of resolvepipe.toml.
type PipelineAsset struct {
	Name     string                  `toml:"name"`
	LogLevel string                  `toml:"log_level"`
	Width    uint32                  `toml:"width"`
	Height   uint32                  `toml:"height"`
	Pipeline renderer.PipelineConfig `toml:"pipeline"`
}

func DefaultPipelineAsset() *PipelineAsset {
	return &PipelineAsset{
		Name:     "resolvepipe",
		LogLevel: "info",
		Width:    320,
		Height:   180,
		Pipeline: renderer.DefaultPipelineConfig(),
	}
}

func (pa *PipelineAsset) Validate() error {
	if pa.Width == 0 || pa.Height == 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d: %w", pa.Width, pa.Height, core.ErrInvalidConfig)
	}
	return pa.Pipeline.Validate()
}

// ParsePipeline decodes a pipeline asset. Missing keys keep their default
// value, unknown keys are rejected.
func ParsePipeline(data []byte) (*PipelineAsset, error) {
	asset := DefaultPipelineAsset()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(asset); err != nil {
		return nil, fmt.Errorf("decode pipeline asset: %w", err)
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// EncodePipeline writes asset back as TOML.
func EncodePipeline(asset *PipelineAsset) ([]byte, error) {
	return toml.Marshal(asset)
}

type PipelineLoader struct{}

func (pl *PipelineLoader) Load(path string, params interface{}) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	asset, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return asset, nil
}
