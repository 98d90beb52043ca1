package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// JobParams is the configuration snapshot captured when a job is created.
// It is stored as a JSON column and never mutated after creation.
type JobParams struct {
	StartTime         *float64 `json:"start_time,omitempty"`
	EndTime           *float64 `json:"end_time,omitempty"`
	EnableTimestamp   bool     `json:"enable_timestamp,omitempty"`
	EnableChunked     bool     `json:"enable_chunked,omitempty"`
	ChunkLength       int      `json:"chunk_length,omitempty"`
	TranslateTo       string   `json:"translate_to,omitempty"`
	EnhancementPrompt string   `json:"enhancement_prompt,omitempty"`
	AutoEnhance       bool     `json:"auto_enhance,omitempty"`
}

func (p JobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *JobParams) Scan(value interface{}) error {
	if value == nil {
		*p = JobParams{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*p = JobParams{}
		return nil
	}

	return json.Unmarshal(data, p)
}
