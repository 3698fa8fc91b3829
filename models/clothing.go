package models

import (
	"strings"

	"github.com/lib/pq"
)

type ClothingType string

const (
	ClothingTop       ClothingType = "top"
	ClothingBottom    ClothingType = "bottom"
	ClothingDress     ClothingType = "dress"
	ClothingShoes     ClothingType = "shoes"
	ClothingAccessory ClothingType = "accessory"
	ClothingOuterwear ClothingType = "outerwear"
	ClothingBag       ClothingType = "bag"
)

var ClothingTypes = []ClothingType{
	ClothingTop,
	ClothingBottom,
	ClothingDress,
	ClothingShoes,
	ClothingAccessory,
	ClothingOuterwear,
	ClothingBag,
}

// ParseClothingType matches case-insensitively and reports whether s is a known type.
func ParseClothingType(s string) (ClothingType, bool) {
	candidate := ClothingType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range ClothingTypes {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

const (
	StatusTemporary = "temporary"
	StatusInCloset  = "in_closet"

	ImageStatusDraft    = "draft"
	ImageStatusUploaded = "uploaded"

	ProcessingIdle       = "idle"
	ProcessingPending    = "pending"
	ProcessingGenerating = "generating"
	ProcessingCompleted  = "completed"
	ProcessingFailed     = "failed"
)

type Clothing struct {
	JsonModel
	Name         string         `json:"name"`
	Description  *string        `gorm:"type:text" json:"description"`
	ClothingType ClothingType   `gorm:"index" json:"clothing_type"`
	Color        string         `json:"color"`
	Material     string         `json:"material"`
	Brand        string         `json:"brand"`
	Season       string         `json:"season"`
	Fit          string         `json:"fit"`
	Styles       pq.StringArray `gorm:"type:text[]" json:"styles"`
	Occasions    pq.StringArray `gorm:"type:text[]" json:"occasions"`
	OwnerID      uint           `gorm:"index" json:"-"`

	Status              string  `json:"status"`            // temporary, in_closet
	ImageStatus         string  `json:"image_status"`      // draft, uploaded
	ProcessingStatus    string  `json:"processing_status"` // idle, pending, generating, completed, failed
	ProcessRetryTimes   int     `json:"process_retry_times"`
	ProcessErrorMessage *string `json:"process_error_message"`
	ImageURL            *string `json:"image_url"`
	// background removed copy, written by the processing task
	ProcessedImageURL *string `json:"processed_image_url"`
}

// ImageKey prefers the processed image once it exists.
func (c Clothing) ImageKey() string {
	if c.ProcessedImageURL != nil && *c.ProcessedImageURL != "" {
		return *c.ProcessedImageURL
	}
	if c.ImageURL != nil {
		return *c.ImageURL
	}
	return ""
}

// ClosetItem is the read-only view of a garment the stylist reasons over.
type ClosetItem struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	Type        ClothingType `json:"type"`
	Color       string       `json:"color,omitempty"`
	Material    string       `json:"material,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Season      string       `json:"season,omitempty"`
	Fit         string       `json:"fit,omitempty"`
	Styles      []string     `json:"styles,omitempty"`
	Occasions   []string     `json:"occasions,omitempty"`
	Description string       `json:"description,omitempty"`

	ImageKey string `json:"-"`
}

func (c Clothing) ClosetItem() ClosetItem {
	item := ClosetItem{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.ClothingType,
		Color:     c.Color,
		Material:  c.Material,
		Brand:     c.Brand,
		Season:    c.Season,
		Fit:       c.Fit,
		Styles:    append([]string(nil), c.Styles...),
		Occasions: append([]string(nil), c.Occasions...),
		ImageKey:  c.ImageKey(),
	}
	if c.Description != nil {
		item.Description = *c.Description
	}
	return item
}

type ClothingIn struct {
	Name         string `json:"name" validate:"required,max=120"`
	Description  string `json:"description" validate:"max=2000"`
	ClothingType string `json:"clothing_type" validate:"required,oneof=top bottom dress shoes accessory outerwear bag"`
	AddToCloset  bool   `json:"add_to_closet"`
}
