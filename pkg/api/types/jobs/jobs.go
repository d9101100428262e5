package jobs

import (
	"encoding/json"
	"time"

	"github.com/trellis-ml/trellis/pkg/api/types/storage"
	"github.com/trellis-ml/trellis/pkg/cmp"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Status is lifecycle status of a training or transform job.
//
// Jobs are created as Submitted, move to Running, and settle in
// Completed, Failed or Stopped. The lifecycle is owned by the
// Trellis platform; clients only observe it.
type Status string

const (
	Submitted Status = "submitted"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Stopped   Status = "stopped"
)

// Terminal tells whether the status is a settled one.
func (s Status) Terminal() bool {
	switch s {
	case Completed, Failed, Stopped:
		return true
	}
	return false
}

// Resources is resource sizing of a job, like {"cpu": "4", "memory": "16Gi"}.
type Resources map[string]resource.Quantity

func (r Resources) Equal(o Resources) bool {
	return cmp.MapEqWith(r, o, func(a, b resource.Quantity) bool {
		return a.Equal(b)
	})
}

func (r Resources) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]resource.Quantity(r))
}

func (r *Resources) UnmarshalJSON(b []byte) error {
	var m map[string]resource.Quantity
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = Resources(m)
	return nil
}

func (r Resources) MarshalYAML() (interface{}, error) {
	jsonBytes, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	jsonMap := map[string]string{}
	if err := json.Unmarshal(jsonBytes, &jsonMap); err != nil {
		return nil, err
	}
	return jsonMap, nil
}

func (r *Resources) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return err
	}

	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.UnmarshalJSON(jsonBytes)
}

// Channel is a labeled input of a training job.
type Channel struct {
	Name        string           `json:"name" yaml:"name"`
	Source      storage.Location `json:"source" yaml:"source"`
	ContentType string           `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

func (c Channel) Equal(o Channel) bool {
	return c.Name == o.Name &&
		c.Source.Equal(o.Source) &&
		c.ContentType == o.ContentType
}

// TrainingSpec requests a new training job.
type TrainingSpec struct {
	// Image is the (customized) algorithm container image to train with.
	Image string `json:"image" yaml:"image"`

	// Hyperparameters are passed to the algorithm opaquely, as strings.
	Hyperparameters map[string]string `json:"hyperparameters,omitempty" yaml:"hyperparameters,omitempty"`

	Resources Resources `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Channels are labeled inputs. The demonstration workflow uses
	// "train" and "validation".
	Channels []Channel `json:"channels" yaml:"channels"`

	// Output is where the platform stores the trained model artifact.
	Output storage.Location `json:"output" yaml:"output"`
}

func (s TrainingSpec) Equal(o TrainingSpec) bool {
	return s.Image == o.Image &&
		cmp.MapEq(s.Hyperparameters, o.Hyperparameters) &&
		s.Resources.Equal(o.Resources) &&
		cmp.SliceEqWith(s.Channels, o.Channels, Channel.Equal) &&
		s.Output.Equal(o.Output)
}

// TrainingDetail is the platform's view of a training job.
type TrainingDetail struct {
	TrainingId string       `json:"trainingId"`
	Spec       TrainingSpec `json:"spec"`
	Status     Status       `json:"status"`

	// ModelArtifact is the URI of the trained artifact.
	// Empty until the job completes.
	ModelArtifact string `json:"modelArtifact,omitempty"`

	// Reason explains Failed or Stopped status.
	Reason string `json:"reason,omitempty"`

	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

func (d TrainingDetail) Equal(o TrainingDetail) bool {
	return d.TrainingId == o.TrainingId &&
		d.Spec.Equal(o.Spec) &&
		d.Status == o.Status &&
		d.ModelArtifact == o.ModelArtifact &&
		d.Reason == o.Reason
}

// TransformSpec requests a new batch transform job.
type TransformSpec struct {
	// ModelArtifact is the URI of a trained artifact, as reported in
	// TrainingDetail.
	ModelArtifact string `json:"modelArtifact" yaml:"modelArtifact"`

	Resources Resources `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Input is the dataset to run inference over.
	Input storage.Location `json:"input" yaml:"input"`

	// Output is where the platform writes the prediction table.
	Output storage.Location `json:"output" yaml:"output"`
}

func (s TransformSpec) Equal(o TransformSpec) bool {
	return s.ModelArtifact == o.ModelArtifact &&
		s.Resources.Equal(o.Resources) &&
		s.Input.Equal(o.Input) &&
		s.Output.Equal(o.Output)
}

// TransformDetail is the platform's view of a batch transform job.
type TransformDetail struct {
	TransformId string        `json:"transformId"`
	Spec        TransformSpec `json:"spec"`
	Status      Status        `json:"status"`

	// Reason explains Failed or Stopped status.
	Reason string `json:"reason,omitempty"`

	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

func (d TransformDetail) Equal(o TransformDetail) bool {
	return d.TransformId == o.TransformId &&
		d.Spec.Equal(o.Spec) &&
		d.Status == o.Status &&
		d.Reason == o.Reason
}
