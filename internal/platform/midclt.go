package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// midcltCall invokes `midclt call <method> [args-json]` and decodes stdout
// as JSON into out. Grounded on original_source/truenas-bench.py's uniform
// subprocess.run(['midclt', 'call', method, ...]) pattern: every management
// API call in this package goes through this one chokepoint.
func midcltCall(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	cmdArgs := []string{"call", method}
	for _, a := range args {
		encoded, err := json.Marshal(a)
		if err != nil {
			return newError("midclt."+method, Transport, err)
		}
		cmdArgs = append(cmdArgs, string(encoded))
	}

	cmd := exec.CommandContext(ctx, "midclt", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return newError("midclt."+method, Transport, fmt.Errorf("%s", stderr.String()))
		}
		return newError("midclt."+method, Transport, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return newError("midclt."+method, Transport, fmt.Errorf("decode: %w", err))
	}
	return nil
}
