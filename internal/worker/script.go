package worker

import (
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/carrotlabs/go-carrot-market/util"
)

// RunScript executes a scripted job's python source and returns the
// interpreter's combined output as the transcript, plus its final line as
// the raw result.
func RunScript(code string) (transcript string, result string, err error) {
	output, err := util.RunPythonCode(code)
	transcript = stripansi.Strip(output)

	lines := strings.Split(strings.TrimSpace(transcript), "\n")
	if len(lines) > 0 {
		result = lines[len(lines)-1]
	}
	return transcript, result, err
}
