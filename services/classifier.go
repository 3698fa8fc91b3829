package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"google.golang.org/genai"

	"closetapi/models"
)

var ErrNoJSONObject = errors.New("reply contains no JSON object")

type GarmentMetadata struct {
	Name        string              `json:"name"`
	Type        models.ClothingType `json:"type"`
	Styles      []string            `json:"styles"`
	Occasions   []string            `json:"occasions"`
	Color       string              `json:"color"`
	Material    string              `json:"material"`
	Brand       string              `json:"brand"`
	Season      string              `json:"season"`
	Fit         string              `json:"fit"`
	Description string              `json:"description"`
}

type GarmentClassifier interface {
	ClassifyGarment(ctx context.Context, image []byte, mimeType string) (*GarmentMetadata, error)
}

// finer grained categories vision models like to answer with
var categoryAliases = map[string]models.ClothingType{
	"shirt":    models.ClothingTop,
	"tshirt":   models.ClothingTop,
	"t-shirt":  models.ClothingTop,
	"blouse":   models.ClothingTop,
	"sweater":  models.ClothingTop,
	"hoodie":   models.ClothingTop,
	"cardigan": models.ClothingTop,
	"pants":    models.ClothingBottom,
	"trousers": models.ClothingBottom,
	"jeans":    models.ClothingBottom,
	"shorts":   models.ClothingBottom,
	"skirt":    models.ClothingBottom,
	"overall":  models.ClothingDress,
	"jumpsuit": models.ClothingDress,
	"sneakers": models.ClothingShoes,
	"boots":    models.ClothingShoes,
	"sandals":  models.ClothingShoes,
	"heels":    models.ClothingShoes,
	"coat":     models.ClothingOuterwear,
	"jacket":   models.ClothingOuterwear,
	"blazer":   models.ClothingOuterwear,
	"vest":     models.ClothingOuterwear,
	"backpack": models.ClothingBag,
}

func normalizeClothingType(raw string) models.ClothingType {
	if t, ok := models.ParseClothingType(raw); ok {
		return t
	}
	if t, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return models.ClothingAccessory
}

func normalizeTags(tags []string) []string {
	cleaned := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		return tag, tag != ""
	})
	return lo.Uniq(cleaned)
}

// ParseGarmentMetadata reads the classifier reply with the same lenient
// extraction the stylist uses.
func ParseGarmentMetadata(text string) (*GarmentMetadata, error) {
	object, ok := ExtractJSONObject(text)
	if !ok {
		return nil, ErrNoJSONObject
	}

	var raw struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Styles      []string `json:"styles"`
		Occasions   []string `json:"occasions"`
		Color       string   `json:"color"`
		Material    string   `json:"material"`
		Brand       string   `json:"brand"`
		Season      string   `json:"season"`
		Fit         string   `json:"fit"`
		Description string   `json:"description"`
	}
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return nil, fmt.Errorf("decode garment metadata: %w", err)
	}

	return &GarmentMetadata{
		Name:        strings.TrimSpace(raw.Name),
		Type:        normalizeClothingType(raw.Type),
		Styles:      normalizeTags(raw.Styles),
		Occasions:   normalizeTags(raw.Occasions),
		Color:       strings.TrimSpace(raw.Color),
		Material:    strings.TrimSpace(raw.Material),
		Brand:       strings.TrimSpace(raw.Brand),
		Season:      strings.TrimSpace(raw.Season),
		Fit:         strings.TrimSpace(raw.Fit),
		Description: strings.TrimSpace(raw.Description),
	}, nil
}

const garmentSystemPrompt = `You catalogue clothing photos for a personal wardrobe app. Look only at the single garment in the image. Reply with exactly one JSON object and nothing else.`

const garmentFieldsPrompt = `Describe the garment using this JSON schema:
{
  "name": string,          // short product style name, e.g. "White linen shirt"
  "type": string,          // one of: top, bottom, dress, shoes, accessory, outerwear, bag
  "styles": [string],      // e.g. casual, classic, sport, street, business, romantic, minimalist
  "occasions": [string],   // e.g. work, date, party, travel, home, wedding, everyday
  "color": string,         // dominant color in plain English
  "material": string,      // best guess, e.g. cotton, wool, denim, leather
  "brand": string,         // only when a logo or label is legible, otherwise empty
  "season": string,        // winter, spring, summer, autumn or all_seasons
  "fit": string,           // slim, regular, oversized or loose
  "description": string    // one sentence
}
If the image shows no garment return {"type": "accessory", "name": "Unknown item"}.`

type GoogleGarmentClassifier struct {
	client *genai.Client
	model  string
}

func NewGoogleGarmentClassifier(ctx context.Context, apiKey, model string) (*GoogleGarmentClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GoogleGarmentClassifier{client: client, model: model}, nil
}

func (g *GoogleGarmentClassifier) ClassifyGarment(ctx context.Context, image []byte, mimeType string) (*GarmentMetadata, error) {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
		{Text: garmentFieldsPrompt},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, &genai.GenerateContentConfig{
		Temperature:      floatPointer(0.2),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: garmentSystemPrompt}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classify garment: %w", err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("content violation: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}
	if result.UsageMetadata != nil {
		log.Debug().
			Str("model", g.model).
			Int32("input_tokens", result.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", result.UsageMetadata.CandidatesTokenCount).
			Msg("[Classifier] garment classified")
	}

	return ParseGarmentMetadata(result.Text())
}
