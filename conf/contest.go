package conf

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Contest describes the tournament being judged.
type Contest struct {
	Variant   string          `toml:"variant"`
	Testcases int             `toml:"testcases"`
	Buckets   ContestBuckets  `toml:"buckets"`
	Programs  ContestPrograms `toml:"programs"`
}

type ContestBuckets struct {
	UserContent string `toml:"usercontent"`
	Testcases   string `toml:"testcases"`
}

// ContestPrograms are object keys in the testcases bucket.
type ContestPrograms struct {
	Accept    string `toml:"ac"`
	CheckAns  string `toml:"checkans"`
	Normalize string `toml:"normalize"`
	Validator string `toml:"validator"`
	Slo       string `toml:"slo"`
}

func DefaultContest() Contest {
	return Contest{
		Variant:   "plagiarism",
		Testcases: 4,
		Buckets: ContestBuckets{
			UserContent: "5buc",
			Testcases:   "5bt",
		},
		Programs: ContestPrograms{
			Accept:    "ac",
			CheckAns:  "checkans",
			Normalize: "normalize",
			Validator: "validator",
			Slo:       "slo",
		},
	}
}

// ParseContest decodes a TOML contest definition on top of the defaults.
func ParseContest(data []byte) (Contest, error) {
	c := DefaultContest()
	if err := toml.Unmarshal(data, &c); err != nil {
		return Contest{}, fmt.Errorf("failed to parse contest: %w", err)
	}
	if c.Testcases <= 0 {
		return Contest{}, fmt.Errorf("contest must have at least one testcase")
	}
	if c.Buckets.UserContent == "" || c.Buckets.Testcases == "" {
		return Contest{}, fmt.Errorf("contest buckets must be set")
	}
	return c, nil
}

func ReadContest(path string) (Contest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Contest{}, fmt.Errorf("failed to read contest file: %w", err)
	}
	return ParseContest(data)
}
