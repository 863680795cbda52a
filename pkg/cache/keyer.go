package cache

import "fmt"

// Keyer builds cache keys.
type Keyer interface {
	// ConversionKey identifies the converted record for an input record and
	// linac configuration, both given as SHA-256 hex digests.
	ConversionKey(inputHash, linacHash string) string

	// ApertureKey identifies a rendered aperture image.
	ApertureKey(inputHash string, opts ApertureKeyOpts) string
}

// ApertureKeyOpts are the rendering options that change an aperture image.
type ApertureKeyOpts struct {
	Beam         int     `json:"beam"`
	ControlPoint int     `json:"cp"`
	Format       string  `json:"format"`
	Converted    bool    `json:"converted"`
	LinacHash    string  `json:"linac,omitempty"`
	Scale        float64 `json:"scale,omitempty"`
	Grid         bool    `json:"grid,omitempty"`
}

// DefaultKeyer produces keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ConversionKey implements Keyer.
func (DefaultKeyer) ConversionKey(inputHash, linacHash string) string {
	return hashKey("convert", inputHash, linacHash)
}

// ApertureKey implements Keyer.
func (DefaultKeyer) ApertureKey(inputHash string, opts ApertureKeyOpts) string {
	return hashKey(fmt.Sprintf("aperture:%s", opts.Format), inputHash, opts)
}
