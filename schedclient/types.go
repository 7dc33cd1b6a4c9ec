package schedclient

const (
	ResultCompiled = "compiled"
	ResultAccepted = "accepted"
)

type CompileResult struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

func (r CompileResult) Compiled() bool {
	return r.Result == ResultCompiled
}

// RunResult is the verdict of one testpoint, aligned by position with the request.
type RunResult struct {
	Result  string  `json:"result"`
	Score   float64 `json:"score"`
	Message string  `json:"message,omitempty"`
}

func (r RunResult) Accepted() bool {
	return r.Result == ResultAccepted
}

// envelope is what the scheduler returns instead of an array when the whole batch failed.
type envelope struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}
