package models

import (
	"encoding/json"
	"strings"
)

const (
	JobKindSimple        = "simple"
	JobKindScripted      = "scripted"
	JobKindContainerized = "containerized"
)

// JobSpec is the structured payload optionally embedded in Job.Description.
// Scripted jobs carry the script source in Code; containerized jobs carry
// an image reference in Image.
type JobSpec struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
	Image       string `json:"image,omitempty"`
}

// DecodeJobSpec interprets a job description. Anything that is not a
// well-formed spec of a recognized kind degrades to a simple job carrying
// the raw text; decoding never fails.
func DecodeJobSpec(description string) JobSpec {
	trimmed := strings.TrimSpace(description)
	if !strings.HasPrefix(trimmed, "{") {
		return JobSpec{Kind: JobKindSimple, Description: description}
	}

	var spec JobSpec
	if err := json.Unmarshal([]byte(trimmed), &spec); err != nil {
		return JobSpec{Kind: JobKindSimple, Description: description}
	}

	switch spec.Kind {
	case JobKindScripted:
		if spec.Code == "" {
			break
		}
		return spec
	case JobKindContainerized:
		if spec.Image == "" {
			break
		}
		return spec
	case JobKindSimple:
		if spec.Description == "" {
			spec.Description = description
		}
		return spec
	}
	return JobSpec{Kind: JobKindSimple, Description: description}
}

// NeedsExecution reports whether this spec requires the execution worker.
func (s JobSpec) NeedsExecution() bool {
	return s.Kind == JobKindScripted || s.Kind == JobKindContainerized
}

// WorkerPayload is what gets sent to the worker for this spec.
func (s JobSpec) WorkerPayload() string {
	switch s.Kind {
	case JobKindScripted:
		return s.Code
	case JobKindContainerized:
		return s.Image
	default:
		return s.Description
	}
}
