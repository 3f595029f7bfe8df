// internal/workers/integrate-results/models.go
package integrateresults

import (
	"encoding/json"

	"advisor-engine/internal/models"
)

// Input carries the job variables: the raw recommendation payloads collected
// by the upstream fan-out. They stay raw here so the schema can reject
// malformed entries before they become typed records.
type Input struct {
	UserID          string            `json:"userId"`
	Recommendations []json.RawMessage `json:"recommendations"`
	Goals           []models.Goal     `json:"goals,omitempty"`
}

type Output struct {
	UnifiedResult *models.UnifiedResult `json:"unifiedResult"`
	Archived      bool                  `json:"archived"`
}
