package cache

// ScopedKeyer prefixes every key of an inner Keyer. The Redis backend uses it
// to keep leafshift entries apart from other users of the same database.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ConversionKey generates a prefixed conversion key.
func (k *ScopedKeyer) ConversionKey(inputHash, linacHash string) string {
	return k.prefix + k.inner.ConversionKey(inputHash, linacHash)
}

// ApertureKey generates a prefixed aperture key.
func (k *ScopedKeyer) ApertureKey(inputHash string, opts ApertureKeyOpts) string {
	return k.prefix + k.inner.ApertureKey(inputHash, opts)
}
