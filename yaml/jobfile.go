// Package yaml parses declarative job files used by `job post --from-file`.
package yaml

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/carrotlabs/go-carrot-market/models"
)

// JobFile is the on-disk description of a job to post.
type JobFile struct {
	Version      string `yaml:"version"`
	Kind         string `yaml:"kind"`
	Description  string `yaml:"description"`
	GpuID        int64  `yaml:"gpu_id"`
	ComputeHours int64  `yaml:"compute_hours"`
	Code         string `yaml:"code,omitempty"`
	Image        string `yaml:"image,omitempty"`
}

type Version struct {
	Version string `yaml:"version"`
}

func getYAMLFileVersion(yamlFile []byte) (string, error) {
	var version Version
	err := yaml.Unmarshal(yamlFile, &version)
	if err != nil {
		return "", err
	}
	return version.Version, nil
}

// HandlerJobFile reads and validates a job file.
func HandlerJobFile(yamlFilePath string) (*JobFile, error) {
	yamlFile, err := os.ReadFile(yamlFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed unable to read file, %w", err)
	}

	version, _ := getYAMLFileVersion(yamlFile)
	if version != "1.0" {
		return nil, fmt.Errorf("not support yaml version: %s", version)
	}

	var jobFile JobFile
	if err := yaml.Unmarshal(yamlFile, &jobFile); err != nil {
		return nil, fmt.Errorf("failed unable to parse YAML file, %w", err)
	}

	if jobFile.Kind == "" {
		jobFile.Kind = models.JobKindSimple
	}
	switch jobFile.Kind {
	case models.JobKindSimple:
	case models.JobKindScripted:
		if jobFile.Code == "" {
			return nil, fmt.Errorf("scripted job file needs a code block")
		}
	case models.JobKindContainerized:
		if jobFile.Image == "" {
			return nil, fmt.Errorf("containerized job file needs an image reference")
		}
	default:
		return nil, fmt.Errorf("unknown job kind: %s", jobFile.Kind)
	}
	if jobFile.ComputeHours <= 0 {
		return nil, fmt.Errorf("compute_hours must be positive")
	}

	return &jobFile, nil
}

// EncodeDescription renders the job's structured payload the way it is
// embedded in the on-ledger description field. Simple jobs stay plain text.
func (f *JobFile) EncodeDescription() (string, error) {
	if f.Kind == models.JobKindSimple {
		return f.Description, nil
	}

	spec := models.JobSpec{
		Kind:        f.Kind,
		Description: f.Description,
		Code:        f.Code,
		Image:       f.Image,
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
