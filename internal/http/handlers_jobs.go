package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"qtumor/internal/classify"
	"qtumor/internal/config"
	"qtumor/internal/jobs"
)

func classifierFrom(c *fiber.Ctx) *classify.Service {
	cls, _ := c.Locals("classifier").(*classify.Service)
	return cls
}

// statusForKind maps a classification error kind to an HTTP status.
func statusForKind(k classify.Kind) int {
	switch k {
	case classify.KindInput:
		return fiber.StatusBadRequest
	case classify.KindLookup:
		return fiber.StatusNotFound
	case classify.KindRemote:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	kind := classify.KindOf(err)
	resp := ErrorResponse{
		Success: false,
		Code:    kind.Code(),
		Error:   err.Error(),
	}
	var ie *classify.InputError
	if errors.As(err, &ie) {
		resp.Details = fiber.Map{"expected": ie.Expected, "actual": ie.Actual}
	}
	return c.Status(statusForKind(kind)).JSON(resp)
}

// submitJobHandler submits one feature vector and returns the job id
// without waiting for the remote job.
func submitJobHandler(c *fiber.Ctx) error {
	cls := classifierFrom(c)

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Invalid request body",
		})
	}

	id, err := cls.Submit(c.Context(), req.Features)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(SubmitResponse{
		Success: true,
		ID:      id,
		URL:     fmt.Sprintf("%s/v1/jobs/%s", c.BaseURL(), id),
	})
}

// checkJobHandler polls a job once. Job failures are reported in the
// body with a 200; only malformed requests are rejected.
func checkJobHandler(c *fiber.Ctx) error {
	cls := classifierFrom(c)
	id := strings.TrimSpace(c.Params("id"))

	threshold := classify.DefaultThreshold
	if cfg, ok := c.Locals("config").(*config.Config); ok && cfg != nil {
		threshold = cfg.Classifier.Threshold
	}
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "invalid threshold value",
			})
		}
		threshold = v
	}

	res := cls.Check(c.Context(), id, threshold)
	return c.JSON(CheckResponse{Success: true, ID: id, Result: res})
}

// deleteJobHandler forgets a job handle. The remote job is not cancelled.
func deleteJobHandler(c *fiber.Ctx) error {
	cls := classifierFrom(c)
	id := strings.TrimSpace(c.Params("id"))

	if err := cls.Forget(c.Context(), id); err != nil {
		if errors.Is(err, jobs.ErrHandleNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "JOB_NOT_FOUND",
				Error:   "no stored handle for job " + id,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   fmt.Sprintf("failed to delete job handle: %v", err),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// jobsListHandler lists stored job handles, newest first, for stores
// that support enumeration.
func jobsListHandler(c *fiber.Ctx) error {
	cls := classifierFrom(c)

	lister, ok := cls.Store().(jobs.Lister)
	if !ok {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_SUPPORTED",
			Error:   "the configured job store cannot list jobs",
		})
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "invalid limit value",
			})
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "invalid offset value",
			})
		}
		offset = n
	}

	recs, err := lister.List(c.Context(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   fmt.Sprintf("failed to list jobs: %v", err),
		})
	}

	items := make([]JobItem, 0, len(recs))
	for _, r := range recs {
		item := JobItem{
			ID:          r.ID,
			Backend:     r.Backend,
			Features:    r.Features,
			Status:      string(r.Status),
			SubmittedAt: r.SubmittedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		if len(r.Result) > 0 {
			var res classify.Result
			if err := json.Unmarshal(r.Result, &res); err == nil {
				item.Result = res
			}
		}
		items = append(items, item)
	}

	return c.JSON(ListJobsResponse{Success: true, Jobs: items})
}
