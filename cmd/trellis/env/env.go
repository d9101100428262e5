package env

import (
	"os"

	"github.com/trellis-ml/trellis/pkg/api/types/jobs"
	"gopkg.in/yaml.v3"
)

// TrellisEnv carries per-project defaults, read from a "trellisenv" yaml file.
type TrellisEnv struct {
	// Namespace prefixes repository names of customized images.
	Namespace string `yaml:"namespace"`

	// Hyperparameters are defaults for training jobs.
	Hyperparameters map[string]string `yaml:"hyperparameters"`

	// Resources are default sizing for training and transform jobs.
	Resources jobs.Resources `yaml:"resources"`
}

func New() *TrellisEnv {
	return new(TrellisEnv)
}

// LoadTrellisEnv reads a trellisenv file.
//
// A missing file is not an error: defaults are simply empty then.
func LoadTrellisEnv(filepath string) (*TrellisEnv, error) {
	env := TrellisEnv{}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return &env, nil
	}

	if err := yaml.Unmarshal(content, &env); err != nil {
		return nil, err
	}

	return &env, nil
}
