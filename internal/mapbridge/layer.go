package mapbridge

// StaticLayer is a plain Layer value for callers that describe layers
// rather than hold live rendering objects, such as the gRPC transport and
// the replay tool.
type StaticLayer struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	IsLabel bool   `json:"permanent,omitempty"`
}

// LayerID returns the layer ID.
func (l StaticLayer) LayerID() string { return l.ID }

// Identity returns the attached region label, if any.
func (l StaticLayer) Identity() (string, bool) { return l.Label, l.Label != "" }

// Permanent reports whether this is the persistent label layer.
func (l StaticLayer) Permanent() bool { return l.IsLabel }
