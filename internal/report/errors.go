package report

import "fmt"

// Pipeline stage names recorded on failures so the stored error message says
// where generation died.
const (
	StageResolve   = "resolve_period"
	StageAggregate = "aggregate"
	StagePatterns  = "patterns"
	StageCompose   = "compose"
	StageEncode    = "encode"
	StageEncrypt   = "encrypt"
	StagePersist   = "persist"
)

// StageError wraps a pipeline failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
