package training

import (
	"encoding/json"
	"os"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// ManifestSuffix is appended to the model path to name its manifest.
const ManifestSuffix = ".manifest.json"

// Manifest records what produced a model artifact.
type Manifest struct {
	JobName         string             `json:"job_name"`
	ModelURI        string             `json:"model_uri"`
	ModelPath       string             `json:"model_path"`
	BoosterPath     string             `json:"booster_path,omitempty"`
	FeatureNames    []string           `json:"feature_names"`
	TrainRows       int                `json:"train_rows"`
	ValidationRows  int                `json:"validation_rows"`
	PositiveRate    float64            `json:"positive_rate"`
	HyperParameters map[string]string  `json:"hyperparameters"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ManifestPath returns the manifest location for a model path.
func ManifestPath(modelPath string) string {
	return modelPath + ManifestSuffix
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "decode manifest %s", path)
	}
	return &m, nil
}
