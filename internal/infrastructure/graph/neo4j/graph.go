// Package neo4j projects enriched parts into a compatibility graph:
// (:Part)-[:FITS]->(:Vehicle) and (:Part)-[:INTERCHANGES_WITH]->(:Part).
package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const syncPartCypher = `
MERGE (p:Part {part_number: $part_number})
SET p.description = $description, p.brand = $brand, p.category = $category, p.oem_status = $oem_status
WITH p
OPTIONAL MATCH (p)-[old:FITS]->(:Vehicle)
DELETE old
WITH DISTINCT p
FOREACH (v IN $vehicles |
	MERGE (veh:Vehicle {key: v.key})
	SET veh.make = v.make, veh.model = v.model, veh.years = v.years, veh.engine = v.engine
	MERGE (p)-[:FITS]->(veh)
)
FOREACH (alt IN $interchangeable |
	MERGE (other:Part {part_number: alt})
	MERGE (p)-[:INTERCHANGES_WITH]-(other)
)
`

const interchangeableCypher = `
MATCH (p:Part {part_number: $part_number})-[:INTERCHANGES_WITH*1..2]-(other:Part)
WHERE other.part_number <> $part_number
RETURN DISTINCT other.part_number AS part_number
ORDER BY part_number
`

type queryRunner func(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)

type Graph struct {
	driver neo4j.DriverWithContext
	run    queryRunner
}

func New(ctx context.Context, uri, user, password, database string) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(database))
	}
	return &Graph{
		driver: driver,
		run: func(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
			return neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, opts...)
		},
	}, nil
}

func (g *Graph) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

func (g *Graph) SyncPart(ctx context.Context, part domain.Part) error {
	if _, err := g.run(ctx, syncPartCypher, SyncParams(part)); err != nil {
		return fmt.Errorf("sync part %s to graph: %w", part.PartNumber, err)
	}
	return nil
}

func (g *Graph) Interchangeable(ctx context.Context, partNumber string) ([]string, error) {
	result, err := g.run(ctx, interchangeableCypher, map[string]any{"part_number": partNumber})
	if err != nil {
		return nil, fmt.Errorf("query interchangeable parts: %w", err)
	}

	out := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		value, ok := record.Get("part_number")
		if !ok {
			continue
		}
		if pn, ok := value.(string); ok && pn != "" {
			out = append(out, pn)
		}
	}
	return out, nil
}

// SyncParams flattens a part into Cypher parameters. Vehicles are keyed by make, model, years and engine.
func SyncParams(part domain.Part) map[string]any {
	vehicles := make([]any, 0, len(part.CompatibleVehicles))
	seen := make(map[string]struct{}, len(part.CompatibleVehicles))
	for _, v := range part.CompatibleVehicles {
		key := strings.ToLower(strings.Join([]string{v.Make, v.Model, v.Years, v.Engine}, "|"))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		vehicles = append(vehicles, map[string]any{
			"key":    key,
			"make":   v.Make,
			"model":  v.Model,
			"years":  v.Years,
			"engine": v.Engine,
		})
	}

	alternates := make([]string, 0, len(part.InterchangeableParts))
	for _, alt := range part.InterchangeableParts {
		alt = strings.TrimSpace(alt)
		if alt != "" && !strings.EqualFold(alt, part.PartNumber) {
			alternates = append(alternates, alt)
		}
	}
	sort.Strings(alternates)

	interchangeable := make([]any, 0, len(alternates))
	for _, alt := range alternates {
		interchangeable = append(interchangeable, alt)
	}

	return map[string]any{
		"part_number":     part.PartNumber,
		"description":     part.Description,
		"brand":           part.Brand,
		"category":        part.Category,
		"oem_status":      string(part.OEMStatus),
		"vehicles":        vehicles,
		"interchangeable": interchangeable,
	}
}
