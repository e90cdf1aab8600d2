package http

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/platekit/internal/core/filter"
	"github.com/samirrijal/platekit/internal/core/usecases"
)

// StageInfo describes one available filter stage.
type StageInfo struct {
	Kind  int    `json:"kind"`
	Name  string `json:"name"`
	Param string `json:"param"`
}

// ListStages returns every filter stage in numeric order.
func ListStages() []StageInfo {
	var out []StageInfo
	for k := filter.StageKind(1); k.Valid(); k++ {
		out = append(out, StageInfo{Kind: int(k), Name: k.String(), Param: k.Param()})
	}
	return out
}

// StagesHandler lists the filter stages and the parameter each reads.
func StagesHandler() fiber.Handler {
	stages := ListStages()
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(stages)
	}
}

// FilterHandler runs a filter pipeline. The body is the flat parameter map
// accepted by parameter files:
//
//	{"inputFile": "data/isochrons.geojson", "outputFile": "young.geojson",
//	 "filterSequence": [6, 5], "ageExistsWindow": [50, 0],
//	 "boundingBox": [0, 360, -90, 0]}
//
// With ?summary=true the surviving features are left out of the response.
func FilterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Filter == nil {
			return errUnavailable(c, "filter service not configured")
		}

		var body map[string]any
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}

		req, err := usecases.RequestFromMap(normalizeNumbers(body).(map[string]any))
		if err != nil {
			return errFromDomain(c, err)
		}

		ctx := c.UserContext()
		if deps.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.RunTimeout)
			defer cancel()
		}

		res, err := deps.Filter.Run(ctx, req)
		if err != nil {
			return errFromDomain(c, err)
		}
		if c.QueryBool("summary", false) {
			res.Collection = nil
		}
		return c.JSON(res)
	}
}

// normalizeNumbers turns json.Number values into int when integral and
// float64 otherwise, so plate ids decode as integers.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	}
	return v
}

// ListCollectionsHandler lists collections stored in the database.
func ListCollectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Collections == nil {
			return errNotFound(c, "no collection database configured")
		}
		cols, err := deps.Collections.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset, limit := pageParams(c, 100, 500)
		total := len(cols)
		cols = cols[min(offset, total):min(offset+limit, total)]

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: cols, Pagination: pg})
	}
}
