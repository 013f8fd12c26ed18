package models

import "github.com/kartoza/aquacheck/internal/nn"

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse describes the running service and its loaded model
type InfoResponse struct {
	Version    string     `json:"version"`
	Parameters []string   `json:"parameters"`
	Model      nn.Summary `json:"model"`
}

// RecommendationsResponse carries advisories without a classification
type RecommendationsResponse struct {
	Status          string   `json:"status"`
	Recommendations []string `json:"recommendations,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// ErrorResponse is used for failures outside the prediction pipeline
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
