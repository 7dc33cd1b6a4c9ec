package statestore

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/duel/domain"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodeState serializes the whole result matrix. It grows with the square of
// the user count, so it is zstd-compressed.
func encodeState(s domain.State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func decodeState(data []byte) (domain.State, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress state: %w", err)
	}
	var s domain.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if s == nil {
		s = domain.State{}
	}
	return s, nil
}

func sortByTime(subms []domain.Submission) {
	sort.SliceStable(subms, func(i, j int) bool {
		if !subms[i].Time.Equal(subms[j].Time) {
			return subms[i].Time.Before(subms[j].Time)
		}
		return subms[i].ID < subms[j].ID
	})
}
