package engine

// StaleEntry flags a binding whose source had no data at evaluation time; the
// binding still contributed its neutral value, the UI may surface the flag.
type StaleEntry struct {
	LayerID   string `json:"layerId"`
	BindingID string `json:"bindingId"`
}

// Snapshot is the resolved output of one evaluation pass, handed to the
// rendering collaborator and broadcast to preview subscribers.
type Snapshot struct {
	Time   float64                       `json:"time"`
	Params map[string]map[string]float64 `json:"params"`
	Assets map[string]string             `json:"assets,omitempty"`
	Stale  []StaleEntry                  `json:"stale,omitempty"`
}

// Value reads one resolved parameter, or the fallback if it was not driven
// this frame.
func (s Snapshot) Value(layerID, propertyKey string, fallback float64) float64 {
	if layer, ok := s.Params[layerID]; ok {
		if v, ok := layer[propertyKey]; ok {
			return v
		}
	}
	return fallback
}
