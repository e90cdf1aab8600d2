package http

import (
	"encoding/json"
	"errors"
	"math/rand"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema: the numeric kernels as queries
// and filter runs as a mutation.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"distance_km": &graphql.Field{Type: graphql.Float},
			"bearing_deg": &graphql.Field{Type: graphql.Float},
		},
	})

	boxType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"lon_min": &graphql.Field{Type: graphql.Float},
			"lon_max": &graphql.Field{Type: graphql.Float},
			"lat_min": &graphql.Field{Type: graphql.Float},
			"lat_max": &graphql.Field{Type: graphql.Float},
		},
	})

	stageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stage",
		Fields: graphql.Fields{
			"kind":  &graphql.Field{Type: graphql.Int},
			"name":  &graphql.Field{Type: graphql.String},
			"param": &graphql.Field{Type: graphql.String},
		},
	})

	stageReportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StageReport",
		Fields: graphql.Fields{
			"position": &graphql.Field{Type: graphql.Int},
			"kind":     &graphql.Field{Type: graphql.Int},
			"name":     &graphql.Field{Type: graphql.String},
			"params":   &graphql.Field{Type: graphql.String},
			"in":       &graphql.Field{Type: graphql.Int},
			"out":      &graphql.Field{Type: graphql.Int},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FilterRun",
		Fields: graphql.Fields{
			"run_id":      &graphql.Field{Type: graphql.String},
			"input":       &graphql.Field{Type: graphql.String},
			"input_size":  &graphql.Field{Type: graphql.Int},
			"output":      &graphql.Field{Type: graphql.String},
			"output_size": &graphql.Field{Type: graphql.Int},
			"written":     &graphql.Field{Type: graphql.Boolean},
			"feature_ids": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"stages":      &graphql.Field{Type: graphql.NewList(stageReportType)},
		},
	})

	pointArgs := func(names ...string) graphql.FieldConfigArgument {
		args := graphql.FieldConfigArgument{}
		for _, n := range names {
			args[n] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)}
		}
		return args
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stages": &graphql.Field{
				Type:        graphql.NewList(stageType),
				Description: "Available filter stages",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []map[string]interface{}
					for _, s := range ListStages() {
						out = append(out, map[string]interface{}{"kind": s.Kind, "name": s.Name, "param": s.Param})
					}
					return out, nil
				},
			},
			"greatCircle": &graphql.Field{
				Type:        legType,
				Description: "Great-circle distance and initial bearing between two points",
				Args:        pointArgs("lat1", "lon1", "lat2", "lon2"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a := domain.GeoPoint{Lat: p.Args["lat1"].(float64), Lon: p.Args["lon1"].(float64)}
					b := domain.GeoPoint{Lat: p.Args["lat2"].(float64), Lon: p.Args["lon2"].(float64)}
					return geospatial.GreatCircle(a, b), nil
				},
			},
			"boundingBoxAround": &graphql.Field{
				Type:        boxType,
				Description: "Box enclosing a circle around a point, in 0-360 longitudes",
				Args:        pointArgs("lat", "lon", "radius_km"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					radius := p.Args["radius_km"].(float64)
					if radius <= 0 {
						return nil, errors.New("radius_km must be positive")
					}
					return geospatial.BoundingBoxAround(p.Args["lat"].(float64), p.Args["lon"].(float64), radius), nil
				},
			},
			"precision": &graphql.Field{
				Type:        graphql.Float,
				Description: "Fisher precision parameter from a95 and sample count",
				Args: graphql.FieldConfigArgument{
					"a95": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"n":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.PrecisionFromA95(p.Args["a95"].(float64), p.Args["n"].(int))
				},
			},
			"normalize": &graphql.Field{
				Type:        geoPointType,
				Description: "Fold a coordinate into canonical ranges",
				Args:        pointArgs("lat", "lon"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.GeoPoint{
						Lat: geospatial.NormalizeLat(p.Args["lat"].(float64)),
						Lon: geospatial.NormalizeLon(p.Args["lon"].(float64)),
					}, nil
				},
			},
			"samplePoints": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Points on the sphere, uniform spiral or random",
				Args: graphql.FieldConfigArgument{
					"n":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"random": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"seed":   &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n := p.Args["n"].(int)
					if n <= 0 || n > MaxSamplePoints {
						return nil, errors.New("n out of range")
					}
					if !p.Args["random"].(bool) {
						return geospatial.UniformPoints(n), nil
					}
					var rng *rand.Rand
					if seed, ok := p.Args["seed"].(int); ok {
						rng = rand.New(rand.NewSource(int64(seed)))
					}
					return geospatial.RandomPoints(n, rng), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"runFilter": &graphql.Field{
				Type:        runType,
				Description: "Run a filter pipeline; params is a JSON object of stage parameters",
				Args: graphql.FieldConfigArgument{
					"input":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"output":   &graphql.ArgumentConfig{Type: graphql.String},
					"sequence": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))},
					"params":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "{}"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Filter == nil {
						return nil, errors.New("filter service not configured")
					}
					var m map[string]any
					if err := json.Unmarshal([]byte(p.Args["params"].(string)), &m); err != nil {
						return nil, errors.New("params must be a JSON object")
					}
					if m == nil {
						m = map[string]any{}
					}
					m["inputFile"] = p.Args["input"]
					if out, ok := p.Args["output"].(string); ok {
						m["outputFile"] = out
					}
					m["filterSequence"] = p.Args["sequence"]

					req, err := usecases.RequestFromMap(m)
					if err != nil {
						return nil, err
					}
					res, err := deps.Filter.Run(p.Context, req)
					if err != nil {
						return nil, err
					}
					return runSummary(res), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func runSummary(res *usecases.FilterResult) map[string]interface{} {
	ids := make([]string, 0, res.Collection.Len())
	if res.Collection != nil {
		for _, f := range res.Collection.Features {
			ids = append(ids, f.ID)
		}
	}
	stages := make([]map[string]interface{}, 0, len(res.Stages))
	for _, s := range res.Stages {
		stages = append(stages, map[string]interface{}{
			"position": s.Position,
			"kind":     int(s.Kind),
			"name":     s.Name,
			"params":   s.Params,
			"in":       s.In,
			"out":      s.Out,
		})
	}
	return map[string]interface{}{
		"run_id":      res.RunID,
		"input":       res.Input,
		"input_size":  res.InputSize,
		"output":      res.Output,
		"output_size": res.Collection.Len(),
		"written":     res.Written,
		"feature_ids": ids,
		"stages":      stages,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
