package domain

import (
	"strings"
	"time"
)

type OEMStatus string

const (
	OEMStatusOEM         OEMStatus = "OEM"
	OEMStatusAftermarket OEMStatus = "Aftermarket"
	OEMStatusUnknown     OEMStatus = "Unknown"
)

func NormalizeOEMStatus(raw string) OEMStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "oem", "genuine", "original":
		return OEMStatusOEM
	case "aftermarket":
		return OEMStatusAftermarket
	default:
		return OEMStatusUnknown
	}
}

type VehicleCompatibility struct {
	Make   string `json:"make"`
	Model  string `json:"model"`
	Years  string `json:"years,omitempty"`
	Engine string `json:"engine,omitempty"`
	Trim   string `json:"trim,omitempty"`
}

type EnrichmentRequest struct {
	PartNumber  string
	Description string
	Brand       string
}

// PartEnrichment is the structured record an AI provider returns for one part.
type PartEnrichment struct {
	PartNumber             string                 `json:"part_number"`
	FullDescription        string                 `json:"full_description"`
	CompatibleVehicles     []VehicleCompatibility `json:"compatible_vehicles"`
	Category               string                 `json:"category,omitempty"`
	Subcategory            string                 `json:"subcategory,omitempty"`
	Specifications         map[string]string      `json:"specifications,omitempty"`
	OEMStatus              OEMStatus              `json:"oem_status"`
	Manufacturer           string                 `json:"manufacturer,omitempty"`
	EstimatedLifespan      string                 `json:"estimated_lifespan,omitempty"`
	InstallationDifficulty string                 `json:"installation_difficulty,omitempty"`
	InterchangeableParts   []string               `json:"interchangeable_parts,omitempty"`
	CommonIssues           string                 `json:"common_issues,omitempty"`
	MaintenanceNotes       string                 `json:"maintenance_notes,omitempty"`
	WarrantyInfo           string                 `json:"warranty_info,omitempty"`
	PriceRange             string                 `json:"price_range,omitempty"`
}

// FallbackEnrichment is used when the provider answered but the payload was unusable.
func FallbackEnrichment(req EnrichmentRequest) PartEnrichment {
	return PartEnrichment{
		PartNumber:             req.PartNumber,
		FullDescription:        req.Description,
		CompatibleVehicles:     []VehicleCompatibility{},
		Category:               "Auto Parts",
		Specifications:         map[string]string{},
		OEMStatus:              OEMStatusUnknown,
		Manufacturer:           req.Brand,
		EstimatedLifespan:      "Unknown",
		InstallationDifficulty: "Unknown",
		InterchangeableParts:   []string{},
		PriceRange:             "Contact for pricing",
	}
}

// AINotes joins the free-text notes kept on the catalog record.
func (e PartEnrichment) AINotes() string {
	notes := make([]string, 0, 3)
	for _, note := range []string{e.CommonIssues, e.MaintenanceNotes, e.WarrantyInfo} {
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			notes = append(notes, trimmed)
		}
	}
	return strings.Join(notes, "\n\n")
}

type Part struct {
	ID                   string                 `json:"id"`
	PartNumber           string                 `json:"part_number"`
	Description          string                 `json:"description"`
	Brand                string                 `json:"brand,omitempty"`
	Category             string                 `json:"category,omitempty"`
	ImageURL             string                 `json:"image_url,omitempty"`
	CompatibleVehicles   []VehicleCompatibility `json:"compatible_vehicles"`
	Specifications       map[string]string      `json:"specifications"`
	OEMStatus            OEMStatus              `json:"oem_status"`
	EstimatedLifespan    string                 `json:"estimated_lifespan,omitempty"`
	InterchangeableParts []string               `json:"interchangeable_parts"`
	AINotes              string                 `json:"ai_notes,omitempty"`
	LastEnriched         *time.Time             `json:"last_enriched,omitempty"`
	LastImageUpdate      *time.Time             `json:"last_image_update,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// PartUpsert creates or updates a catalog row keyed by part number.
// Nil pointers, nil slices and nil maps leave the stored value unchanged.
type PartUpsert struct {
	PartNumber           string
	Description          *string
	Brand                *string
	Category             *string
	ImageURL             *string
	CompatibleVehicles   []VehicleCompatibility
	Specifications       map[string]string
	OEMStatus            *OEMStatus
	EstimatedLifespan    *string
	InterchangeableParts []string
	AINotes              *string
	LastEnriched         *time.Time
	LastImageUpdate      *time.Time
}

type PartFilter struct {
	Search   string
	Brand    string
	Category string
	// NeedsEnrichment keeps parts never enriched or enriched without any vehicle fitment.
	NeedsEnrichment bool
	Limit           int
}

// NeedsEnrichment mirrors PartFilter.NeedsEnrichment for a single record.
func (p Part) NeedsEnrichment() bool {
	return p.LastEnriched == nil || len(p.CompatibleVehicles) == 0
}

// MaxBulkEnrich caps how many catalog parts one re-enrichment request may queue.
const MaxBulkEnrich = 50

// RequeueResult reports a bulk re-enrichment request.
type RequeueResult struct {
	BatchID       string   `json:"batch_id,omitempty"`
	Candidates    int      `json:"candidates"`
	Enqueued      int      `json:"enqueued"`
	AlreadyQueued []string `json:"already_queued,omitempty"`
	Missing       []string `json:"missing,omitempty"`
}

// DefaultPartListLimit caps catalog listings when the caller does not ask for a size.
const DefaultPartListLimit = 100
