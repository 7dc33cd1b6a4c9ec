package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/programme-lv/duel/httpjson"
)

type client struct {
	base  string
	token string
}

type response struct {
	httpjson.JsonResponse
	Data json.RawMessage `json:"data"`
}

// get fetches path and decodes the envelope's data into out.
func (c *client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(c.base, "/")+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode response (%s): %w", resp.Status, err)
	}
	if body.Status != "success" {
		return fmt.Errorf("%s: %s", body.ErrCode, body.ErrMsg)
	}
	return json.Unmarshal(body.Data, out)
}
