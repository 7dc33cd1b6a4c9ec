package domain

import "fmt"

// ContentRef points to an immutable blob in object storage.
type ContentRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func NewRef(bucket string, key string) ContentRef {
	return ContentRef{Bucket: bucket, Key: key}
}

func (r ContentRef) String() string {
	return fmt.Sprintf("%s:%s", r.Bucket, r.Key)
}

// RefPtr is a convenience for optional refs (checker, output, answer).
func RefPtr(bucket string, key string) *ContentRef {
	r := NewRef(bucket, key)
	return &r
}

// Testpoint is a single judged execution request sent to the scheduler.
// A nil Checker means only the numeric score is recorded.
type Testpoint struct {
	Code               ContentRef   `json:"code"`
	Checker            *ContentRef  `json:"checker"`
	Input              ContentRef   `json:"input"`
	Output             *ContentRef  `json:"output"`
	Answer             *ContentRef  `json:"answer"`
	SupplementaryFiles []ContentRef `json:"supplementaryFiles"`
}

// CompileJob asks the scheduler to build Artifact from Source.
type CompileJob struct {
	Source             ContentRef   `json:"source"`
	Artifact           ContentRef   `json:"artifact"`
	SupplementaryFiles []ContentRef `json:"supplementaryFiles,omitempty"`
}
