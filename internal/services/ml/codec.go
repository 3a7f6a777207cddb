package ml

import (
	"encoding/json"
	"fmt"

	"PricePulse/internal/domain/service"
)

const (
	kindForest = "forest"
	kindLinear = "linear"
)

// modelEnvelope is the stored form of a trained model. The fit-time
// confidence rides along so reloaded models keep their score without a
// revalidation pass.
type modelEnvelope struct {
	Kind       string       `json:"kind"`
	Confidence float64      `json:"confidence"`
	Forest     *Forest      `json:"forest,omitempty"`
	Linear     *LinearModel `json:"linear,omitempty"`
}

// encodeModel serializes a trained regressor with its confidence.
func encodeModel(model service.Regressor, confidence float64) ([]byte, error) {
	env := modelEnvelope{Confidence: confidence}
	switch m := model.(type) {
	case *Forest:
		env.Kind = kindForest
		env.Forest = m
	case *LinearModel:
		env.Kind = kindLinear
		env.Linear = m
	default:
		return nil, fmt.Errorf("encode model: unsupported type %T", model)
	}
	return json.Marshal(env)
}

// decodeModel restores a stored regressor and its fit-time confidence.
func decodeModel(blob []byte) (service.Regressor, float64, error) {
	var env modelEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, 0, fmt.Errorf("decode model: %w", err)
	}
	switch env.Kind {
	case kindForest:
		if env.Forest == nil {
			return nil, 0, fmt.Errorf("decode model: missing forest payload")
		}
		return env.Forest, env.Confidence, nil
	case kindLinear:
		if env.Linear == nil {
			return nil, 0, fmt.Errorf("decode model: missing linear payload")
		}
		return env.Linear, env.Confidence, nil
	default:
		return nil, 0, fmt.Errorf("decode model: unknown kind %q", env.Kind)
	}
}

// encodeScaler and decodeScaler persist the standardization statistics
// next to the model so predictions reuse the exact training transform.
func encodeScaler(s *StandardScaler) ([]byte, error) {
	return json.Marshal(s)
}

func decodeScaler(blob []byte) (*StandardScaler, error) {
	var s StandardScaler
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Means) == 0 || len(s.Means) != len(s.Stds) {
		return nil, fmt.Errorf("decode scaler: inconsistent statistics")
	}
	return &s, nil
}
