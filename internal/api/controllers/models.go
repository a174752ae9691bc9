package controllers

import "github.com/datallboy/fanout/internal/domain"

// CreateRunRequest is the body of POST /api/runs.
type CreateRunRequest struct {
	Units     []domain.TransferUnit `json:"units"`
	Workers   int                   `json:"workers,omitempty"`
	Overwrite *bool                 `json:"overwrite,omitempty"`
}

type CreateRunResponse struct {
	ID      string           `json:"id"`
	Status  domain.RunStatus `json:"status"`
	Units   int              `json:"units"`
	Workers int              `json:"workers"`
}

type ListRunsResponse struct {
	Runs []*domain.Run `json:"runs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
