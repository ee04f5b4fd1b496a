package enrichment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const payloadSchema = `{
  "type": "object",
  "required": ["partNumber", "fullDescription"],
  "properties": {
    "partNumber": {"type": "string", "minLength": 1},
    "fullDescription": {"type": "string", "minLength": 1},
    "compatibleVehicles": {
      "type": "array",
      "items": {"type": "object"}
    },
    "category": {"type": "string"},
    "subcategory": {"type": "string"},
    "specifications": {"type": "object"},
    "oemStatus": {"type": "string"},
    "manufacturer": {"type": "string"},
    "interchangeableParts": {"type": "array", "items": {"type": ["string", "number"]}}
  }
}`

var (
	compiledSchema = mustCompileSchema()
	strictPolicy   = bluemonday.StrictPolicy()
	codeFence      = regexp.MustCompile("```(?:json)?\\s*")
)

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("enrichment.json", strings.NewReader(payloadSchema)); err != nil {
		panic(fmt.Sprintf("add enrichment schema: %v", err))
	}
	return compiler.MustCompile("enrichment.json")
}

// flexString accepts JSON strings and numbers, since models emit "years": 2018 as often as "2018".
type flexString string

func (f *flexString) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.Trim(string(raw), `"`))
	return nil
}

type payload struct {
	PartNumber         string `json:"partNumber"`
	FullDescription    string `json:"fullDescription"`
	CompatibleVehicles []struct {
		Make   flexString `json:"make"`
		Model  flexString `json:"model"`
		Years  flexString `json:"years"`
		Engine flexString `json:"engine"`
		Trim   flexString `json:"trim"`
	} `json:"compatibleVehicles"`
	Category               string                     `json:"category"`
	Subcategory            string                     `json:"subcategory"`
	Specifications         map[string]json.RawMessage `json:"specifications"`
	OEMStatus              string                     `json:"oemStatus"`
	Manufacturer           string                     `json:"manufacturer"`
	EstimatedLifespan      flexString                 `json:"estimatedLifespan"`
	InstallationDifficulty string                     `json:"installationDifficulty"`
	InterchangeableParts   []flexString               `json:"interchangeableParts"`
	CommonIssues           string                     `json:"commonIssues"`
	MaintenanceNotes       string                     `json:"maintenanceNotes"`
	WarrantyInfo           string                     `json:"warrantyInfo"`
	PriceRange             string                     `json:"priceRange"`
}

// Decode turns a raw model response into a PartEnrichment. Unusable responses return
// the fallback record and a non-nil reason; callers treat that as a miss, not a failure.
func Decode(raw string, req domain.EnrichmentRequest) (domain.PartEnrichment, error) {
	object := ExtractJSONObject(raw)
	if object == "" {
		return domain.FallbackEnrichment(req), fmt.Errorf("no json object in response")
	}

	var generic any
	if err := json.Unmarshal([]byte(object), &generic); err != nil {
		return domain.FallbackEnrichment(req), fmt.Errorf("parse enrichment json: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return domain.FallbackEnrichment(req), fmt.Errorf("enrichment json does not match schema: %w", err)
	}

	var p payload
	if err := json.Unmarshal([]byte(object), &p); err != nil {
		return domain.FallbackEnrichment(req), fmt.Errorf("decode enrichment json: %w", err)
	}

	out := domain.PartEnrichment{
		PartNumber:             clean(p.PartNumber),
		FullDescription:        clean(p.FullDescription),
		CompatibleVehicles:     make([]domain.VehicleCompatibility, 0, len(p.CompatibleVehicles)),
		Category:               clean(p.Category),
		Subcategory:            clean(p.Subcategory),
		Specifications:         make(map[string]string, len(p.Specifications)),
		OEMStatus:              domain.NormalizeOEMStatus(p.OEMStatus),
		Manufacturer:           clean(p.Manufacturer),
		EstimatedLifespan:      clean(string(p.EstimatedLifespan)),
		InstallationDifficulty: clean(p.InstallationDifficulty),
		InterchangeableParts:   make([]string, 0, len(p.InterchangeableParts)),
		CommonIssues:           clean(p.CommonIssues),
		MaintenanceNotes:       clean(p.MaintenanceNotes),
		WarrantyInfo:           clean(p.WarrantyInfo),
		PriceRange:             clean(p.PriceRange),
	}
	if out.PartNumber == "" {
		out.PartNumber = req.PartNumber
	}

	for _, v := range p.CompatibleVehicles {
		vehicle := domain.VehicleCompatibility{
			Make:   clean(string(v.Make)),
			Model:  clean(string(v.Model)),
			Years:  clean(string(v.Years)),
			Engine: clean(string(v.Engine)),
			Trim:   clean(string(v.Trim)),
		}
		if vehicle.Make == "" {
			continue
		}
		out.CompatibleVehicles = append(out.CompatibleVehicles, vehicle)
	}

	keys := make([]string, 0, len(p.Specifications))
	for key := range p.Specifications {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := specValue(p.Specifications[key])
		if name := clean(key); name != "" && value != "" {
			out.Specifications[name] = value
		}
	}

	for _, part := range p.InterchangeableParts {
		if pn := clean(string(part)); pn != "" && !strings.EqualFold(pn, out.PartNumber) {
			out.InterchangeableParts = append(out.InterchangeableParts, pn)
		}
	}
	return out, nil
}

// ExtractJSONObject strips code fences and returns the outermost {...} span, or "".
func ExtractJSONObject(raw string) string {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}

func specValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return clean(s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// clean removes any markup the model echoed and restores plain-text entities.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
