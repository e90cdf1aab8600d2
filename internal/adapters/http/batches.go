package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/filter"
	"github.com/samirrijal/platekit/internal/workflows"
)

// MaxBatchRuns caps the runs accepted by POST /v1/batches.
const MaxBatchRuns = 100

// StartBatchHandler submits a batch of filter runs as a workflow. Each run
// is validated before anything is submitted.
func StartBatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Batches == nil {
			return errUnavailable(c, "batch workflows not configured")
		}

		var input workflows.BatchInput
		if err := json.Unmarshal(c.Body(), &input); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if len(input.Runs) == 0 || len(input.Runs) > MaxBatchRuns {
			return errBadRequest(c, "runs must hold between 1 and 100 entries")
		}
		for _, run := range input.Runs {
			if run.Input == "" {
				return errFromDomain(c, &domain.ParamError{Param: filter.ParamInput, Err: domain.ErrMissingParameter})
			}
			req, err := run.Request()
			if err == nil && deps.Filter != nil {
				err = deps.Filter.CheckPaths(req)
			}
			if err == nil {
				_, err = filter.FromSequence(req.Sequence, req.Params)
			}
			if err != nil {
				return errFromDomain(c, err)
			}
		}

		id, err := deps.Batches.StartBatch(c.UserContext(), input)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/batches/" + id)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "runs": len(input.Runs)})
	}
}

// BatchStatusHandler reports the state of a submitted batch.
func BatchStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Batches == nil {
			return errUnavailable(c, "batch workflows not configured")
		}
		st, err := deps.Batches.BatchStatus(c.UserContext(), c.Params("id"))
		if err != nil {
			return errNotFound(c, err.Error())
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(st)
	}
}
