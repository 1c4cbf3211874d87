package cache

// Keyer builds cache keys. Implementations must be deterministic.
type Keyer interface {
	// LayoutKey addresses a computed layout for a graph.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	// ArtifactKey addresses an exported file for a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the layout parameters that change the result.
type LayoutKeyOpts struct {
	Strategy    string  `json:"strategy"`
	Orientation string  `json:"orientation"`
	Margin      float64 `json:"margin"`
}

// ArtifactKeyOpts holds the export parameters that change the output.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Theme  string  `json:"theme,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
