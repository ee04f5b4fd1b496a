// Package enrichment holds the provider-neutral parts of AI part enrichment:
// the prompt, payload extraction, schema validation and sanitizing.
package enrichment

import (
	"fmt"
	"strings"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const SystemPrompt = `You are an expert automotive parts database with comprehensive knowledge of OEM and aftermarket parts. Always respond with valid JSON only. Be detailed and accurate.`

func BuildPrompt(req domain.EnrichmentRequest) string {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Not provided"
	}
	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		brand = "Unknown"
	}

	return fmt.Sprintf(`You are an expert automotive parts database AI. Analyze this part number and provide comprehensive, accurate information.

Part Number: %[1]s
Current Description: %[2]s
Brand: %[3]s

Provide factual information about this specific part. If exact information is unavailable, give reasonable estimates based on the part number pattern and description.

Return ONLY valid JSON (no markdown, no code blocks) in this exact format:
{
  "partNumber": "%[1]s",
  "fullDescription": "Complete description of the part including its function",
  "compatibleVehicles": [
    {"make": "Toyota", "model": "Camry", "years": "2015-2020", "engine": "2.5L 4-Cylinder", "trim": "LE, SE"}
  ],
  "category": "Engine",
  "subcategory": "Gaskets & Seals",
  "specifications": {"material": "Rubber", "dimensions": "10cm x 5cm", "weight": "50g"},
  "oemStatus": "OEM",
  "manufacturer": "Toyota Motor Corporation",
  "estimatedLifespan": "80,000-100,000 km",
  "installationDifficulty": "Moderate",
  "interchangeableParts": ["04427-42181"],
  "commonIssues": "Known failure modes",
  "maintenanceNotes": "Inspection guidance",
  "warrantyInfo": "Typical warranty",
  "priceRange": "Typical price range"
}
`, req.PartNumber, description, brand)
}
