package judgesrvc

import "fmt"

// CompileError means the scheduler refused to build the submission.
// The submission ends in compile_error and its slot may be reused immediately.
type CompileError struct {
	Result  string
	Message string
}

func (e *CompileError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("compilation failed: %s", e.Result)
	}
	return e.Message
}

// StageError aborts the pipeline of one submission. The state is left untouched.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

const (
	StageCompile  = "compile"
	StageValidate = "validation"
	StageCanon    = "canonicalization"
	StageCross    = "cross-matching"
)

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
