package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrotlabs/go-carrot-market/models"
)

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestHandlerJobFileScripted(t *testing.T) {
	path := writeJobFile(t, `
version: "1.0"
kind: scripted
description: matmul benchmark
gpu_id: 2
compute_hours: 4
code: |
  print(6*7)
`)

	jobFile, err := HandlerJobFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.JobKindScripted, jobFile.Kind)
	assert.Equal(t, int64(2), jobFile.GpuID)
	assert.Equal(t, int64(4), jobFile.ComputeHours)

	description, err := jobFile.EncodeDescription()
	require.NoError(t, err)

	spec := models.DecodeJobSpec(description)
	assert.Equal(t, models.JobKindScripted, spec.Kind)
	assert.Equal(t, "print(6*7)\n", spec.Code)
}

func TestHandlerJobFileSimpleStaysPlainText(t *testing.T) {
	path := writeJobFile(t, `
version: "1.0"
description: verify the rig
gpu_id: 0
compute_hours: 1
`)

	jobFile, err := HandlerJobFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.JobKindSimple, jobFile.Kind)

	description, err := jobFile.EncodeDescription()
	require.NoError(t, err)
	assert.Equal(t, "verify the rig", description)
}

func TestHandlerJobFileRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"wrong version": `
version: "2.0"
kind: simple
compute_hours: 1
`,
		"scripted without code": `
version: "1.0"
kind: scripted
compute_hours: 1
`,
		"containerized without image": `
version: "1.0"
kind: containerized
compute_hours: 1
`,
		"unknown kind": `
version: "1.0"
kind: quantum
compute_hours: 1
`,
		"zero hours": `
version: "1.0"
kind: simple
compute_hours: 0
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := HandlerJobFile(writeJobFile(t, content))
			assert.Error(t, err)
		})
	}
}
