package domain

type ImageQuality string

const (
	ImageQualityHigh   ImageQuality = "high"
	ImageQualityMedium ImageQuality = "medium"
	ImageQualityLow    ImageQuality = "low"
)

type ImageLookupResult struct {
	PartNumber string       `json:"part_number"`
	Found      bool         `json:"found"`
	ImageURL   string       `json:"image_url,omitempty"`
	Quality    ImageQuality `json:"quality"`
	Source     string       `json:"source"`
	Cached     bool         `json:"cached"`
}

func NotFoundImage(partNumber, source string) ImageLookupResult {
	return ImageLookupResult{
		PartNumber: partNumber,
		Quality:    ImageQualityLow,
		Source:     source,
	}
}
