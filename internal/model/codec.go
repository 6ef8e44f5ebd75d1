package model

import (
	"encoding/json"
	"time"

	"github.com/nvandessel/fedq/internal/constants"
)

// SerializedModel is the versioned wire representation of a Model.
// It is what the checkpoint store persists and what crosses process
// boundaries when an external transport moves models around.
type SerializedModel struct {
	Version   int                  `json:"version"`
	Model     map[string][]float64 `json:"model"`
	Timestamp int64                `json:"timestamp"` // unix milliseconds
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

// Encode serializes a model with the current schema version.
// metadata may be nil.
func Encode(m Model, metadata map[string]any) ([]byte, error) {
	wire := SerializedModel{
		Version:   constants.SchemaVersion,
		Model:     make(map[string][]float64, len(m)),
		Timestamp: time.Now().UnixMilli(),
		Metadata:  metadata,
	}
	for k, v := range m {
		wire.Model[string(k)] = v.Clone()
	}
	return json.Marshal(wire)
}

// Decode parses a serialized model payload. It fails softly: malformed
// JSON, a missing or unsupported version, or a missing model field all
// return (nil, false) so a corrupt import can be skipped instead of
// aborting a long-running training process.
func Decode(payload []byte) (Model, bool) {
	var wire struct {
		Version *int                 `json:"version"`
		Model   map[string][]float64 `json:"model"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, false
	}
	if wire.Version == nil || *wire.Version != constants.SchemaVersion {
		return nil, false
	}
	if wire.Model == nil {
		return nil, false
	}

	m := make(Model, len(wire.Model))
	for k, v := range wire.Model {
		qv := make(QVector, len(v))
		copy(qv, v)
		m[StateKey(k)] = qv
	}
	return m, true
}
