package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Tunables collects the numeric thresholds used by the heuristic scanners.
// The values are reverse-engineered from known sample files and are not
// guaranteed for unseen container variants, so they can be overridden from
// a yaml file instead of being baked in.
type Tunables struct {
	MaxTreeDepth int `yaml:"max_tree_depth"`

	// stride-32 block scan
	MinVertexCountStride32 uint32  `yaml:"min_vertex_count_stride32"`
	MaxVertexCountStride32 uint32  `yaml:"max_vertex_count_stride32"`
	MaxIndexBufferBytes    uint32  `yaml:"max_index_buffer_bytes"`
	MaxCoordMagnitude      float32 `yaml:"max_coord_magnitude"`
	IndexSampleCount       int     `yaml:"index_sample_count"`

	// embedded D3D block scan
	MaxVertexCountD3D uint32 `yaml:"max_vertex_count_d3d"`
	MaxIndexCountA    uint32 `yaml:"max_index_count_a"`
	MaxIndexCountB    uint32 `yaml:"max_index_count_b"`

	// single fixed-size block heuristic
	MaxVertexCountSingle uint32 `yaml:"max_vertex_count_single"`
	TrailingSlackBytes   int    `yaml:"trailing_slack_bytes"`

	// subset table recovery
	SubsetBackscanWindow int    `yaml:"subset_backscan_window"`
	SubsetMaxEntries     uint32 `yaml:"subset_max_entries"`

	// When set, unknown vertex declaration base masks and unknown D3D element
	// types are treated as errors instead of opaque padding.
	StrictFormats bool `yaml:"strict_formats"`
}

func DefaultTunables() Tunables {
	return Tunables{
		MaxTreeDepth: 100000,

		MinVertexCountStride32: 3,
		MaxVertexCountStride32: 2000000,
		MaxIndexBufferBytes:    500000000,
		MaxCoordMagnitude:      200000.0,
		IndexSampleCount:       10,

		MaxVertexCountD3D: 5000000,
		MaxIndexCountA:    50000000,
		MaxIndexCountB:    100000000,

		MaxVertexCountSingle: 10000000,
		TrailingSlackBytes:   64,

		SubsetBackscanWindow: 0x4000,
		SubsetMaxEntries:     256,

		StrictFormats: false,
	}
}

var tunables = DefaultTunables()

func GetTunables() *Tunables {
	return &tunables
}

func SetTunables(t Tunables) {
	tunables = t
}

func LoadTunables(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read tunables file %q", path)
	}
	t := DefaultTunables()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return errors.Wrapf(err, "Failed to parse tunables file %q", path)
	}
	tunables = t
	return nil
}
