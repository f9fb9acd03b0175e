package cache

// Keyer derives cache keys.
type Keyer interface {
	// ArtifactKey is the key of one rendered export of a document.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the export options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format    string  `json:"format"`
	Style     string  `json:"style,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Layout    string  `json:"layout,omitempty"`
}

// DefaultKeyer hashes the options into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey returns "artifact:<sha256>" over the document hash and opts.
func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", docHash, opts)
}
