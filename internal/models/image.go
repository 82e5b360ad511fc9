package models

// ImageType classifies a processed exposure.
type ImageType string

const (
	ImageTypeMonochrome ImageType = "monochrome"
	ImageTypeColor      ImageType = "color"
)
