package pipeline

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/resilience"
)

var errMissingRequirements = eris.New("pipeline: job has no formatted requirements")

// isRetryable reports whether a stage error is worth re-running the job
// for. Configuration errors and model-contract errors are not; transport
// and provider-outage errors are.
func isRetryable(err error) bool {
	return resilience.IsTransient(err)
}

func errEntry(stage model.Stage, err error, retryable bool) model.ErrorLogEntry {
	return model.ErrorLogEntry{
		Stage:     stage,
		Message:   err.Error(),
		Retryable: retryable,
		At:        time.Now().UTC(),
	}
}
