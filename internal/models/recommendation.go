package models

import "time"

// GeneralDomain is the bucket for recommendations whose domain is not in the
// configured domain list.
const GeneralDomain = "general"

// Recommendation is a single raw advice record produced by one of the
// domain-specific collaborators. Recommendations are ephemeral: they only live
// for the duration of one integration run.
type Recommendation struct {
	ID           string     `json:"id,omitempty"`
	Domain       string     `json:"domain"`
	Text         string     `json:"text"`
	Confidence   float64    `json:"confidence"`
	ResourceTags []string   `json:"resourceTags,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}
