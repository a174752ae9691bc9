package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/domain"
)

// RunService is the part of the run manager the API drives.
type RunService interface {
	Start(ctx context.Context, units []domain.TransferUnit, workers int, overwrite bool) (*domain.Run, error)
	Get(ctx context.Context, id string) (*domain.Run, error)
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

type RunsController struct {
	App  *app.Context
	Runs RunService
}

// Create starts a run and answers before it finishes.
func (ctrl *RunsController) Create(c *echo.Context) error {
	var req CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
	}

	for i, u := range req.Units {
		if u.Source == "" || u.Destination == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("unit %d: source and destination are required", i),
			})
		}
	}

	if req.Workers < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "workers must not be negative"})
	}

	overwrite := false
	if ctrl.App != nil && ctrl.App.Config != nil {
		overwrite = ctrl.App.Config.Overwrite
	}
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}

	// The run outlives the request, so it must not inherit its context.
	run, err := ctrl.Runs.Start(context.WithoutCancel(c.Request().Context()), req.Units, req.Workers, overwrite)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusAccepted, CreateRunResponse{
		ID:      run.ID,
		Status:  run.Status,
		Units:   run.Units,
		Workers: run.Workers,
	})
}

func (ctrl *RunsController) List(c *echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		limit = n
	}

	runs, err := ctrl.Runs.List(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	if runs == nil {
		runs = []*domain.Run{}
	}

	return c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}

func (ctrl *RunsController) Get(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing ID"})
	}

	run, err := ctrl.Runs.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, run)
}
