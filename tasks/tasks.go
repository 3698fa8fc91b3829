package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"
)

const (
	TypeProcessClothing  = "closet:process_clothing"
	QueueGenerate        = "generate"
	MaxProcessingRetries = 3
)

// errUnprocessable marks failures a retry cannot fix.
var errUnprocessable = errors.New("clothing cannot be processed")

type ClothingProcessingPayload struct {
	ClothingID uint `json:"clothing_id"`
}

func NewClothingProcessingTask(clothingID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ClothingProcessingPayload{ClothingID: clothingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessClothing, payload), nil
}

func ProcessedImageKey(clothingID uint) string {
	return fmt.Sprintf("clothes/processed/%d.png", clothingID)
}

type ClothingStore interface {
	GetClothing(ctx context.Context, id uint) (*models.Clothing, error)
	SaveClothing(ctx context.Context, clothing *models.Clothing) error
}

// ClothingProcessor runs the add-item pipeline: download, background removal,
// upload of the processed copy, classification, then the move into the closet.
type ClothingProcessor struct {
	Clothes    ClothingStore
	Storage    services.AWSServiceProvider
	Background services.BackgroundRemover
	Classifier services.GarmentClassifier
	Notifier   services.Notifier
	Metrics    *metrics.Registry
	HTTPClient *http.Client
}

func (p *ClothingProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeProcessClothing, p.ProcessClothingTask)
}

func (p *ClothingProcessor) ProcessClothingTask(ctx context.Context, t *asynq.Task) error {
	var payload ClothingProcessingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("[QUEUE] bad payload %q: %v: %w", string(t.Payload()), err, asynq.SkipRetry)
	}
	logger := log.With().Uint("clothing_id", payload.ClothingID).Logger()
	logger.Info().Msgf("[Clothing: %d] Start processing", payload.ClothingID)

	clothing, err := p.Clothes.GetClothing(ctx, payload.ClothingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("[Clothing: %d] not found: %w", payload.ClothingID, asynq.SkipRetry)
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving clothing for processing %d: %w", payload.ClothingID, err))
		return err
	}
	if clothing.ProcessingStatus == models.ProcessingCompleted {
		logger.Info().Msgf("[Clothing: %d] Already processed, skipping", clothing.ID)
		return nil
	}

	clothing.ProcessingStatus = models.ProcessingGenerating
	if err := p.Clothes.SaveClothing(ctx, clothing); err != nil {
		return fmt.Errorf("[Clothing: %d] mark generating: %w", clothing.ID, err)
	}

	if err := p.process(ctx, clothing); err != nil {
		return p.fail(ctx, clothing, err)
	}

	p.Metrics.Inc(ctx, metrics.ClothingProcessed, map[string]string{"outcome": models.ProcessingCompleted})
	logger.Info().Msgf("[Clothing: %d] Processing finished successfully", clothing.ID)

	if p.Notifier != nil {
		err := p.Notifier.Notify(ctx, clothing.OwnerID, "Your item is ready",
			fmt.Sprintf("%s was added to your closet", clothing.Name),
			map[string]string{"clothing_id": fmt.Sprintf("%d", clothing.ID), "type": "clothing_processed"})
		if err != nil {
			logger.Warn().Err(err).Msgf("[Clothing: %d] Notification failed", clothing.ID)
		}
	}
	return nil
}

func (p *ClothingProcessor) process(ctx context.Context, clothing *models.Clothing) error {
	if clothing.ImageURL == nil || *clothing.ImageURL == "" {
		return fmt.Errorf("%w: image was not provided", errUnprocessable)
	}

	readURL, err := p.Storage.PresignRead(ctx, *clothing.ImageURL)
	if err != nil {
		return fmt.Errorf("presign read: %w", err)
	}
	original, err := services.ReadFileFromUrl(ctx, p.HTTPClient, readURL)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	mimeType, ok := services.DetectImageMime(original)
	if !ok {
		return fmt.Errorf("%w: unsupported image type %s", errUnprocessable, mimeType)
	}
	log.Info().Msgf("[Clothing: %d] Downloaded %d bytes (%s)", clothing.ID, len(original), mimeType)

	processed, err := p.Background.RemoveBackground(ctx, original)
	if err != nil {
		// the original image stays the one shown in the closet
		log.Warn().Err(err).Msgf("[Clothing: %d] Background removal failed, keeping original", clothing.ID)
		sentry.CaptureException(fmt.Errorf("[Clothing: %d] background removal: %w", clothing.ID, err))
	} else {
		key := ProcessedImageKey(clothing.ID)
		if err := p.upload(ctx, key, processed); err != nil {
			return err
		}
		clothing.ProcessedImageURL = &key
	}

	meta, err := p.Classifier.ClassifyGarment(ctx, original, mimeType)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	MergeMetadata(clothing, meta)

	clothing.Status = models.StatusInCloset
	clothing.ImageStatus = models.ImageStatusUploaded
	clothing.ProcessingStatus = models.ProcessingCompleted
	clothing.ProcessErrorMessage = nil
	if err := p.Clothes.SaveClothing(ctx, clothing); err != nil {
		return fmt.Errorf("save processed clothing: %w", err)
	}
	return nil
}

func (p *ClothingProcessor) upload(ctx context.Context, key string, content []byte) error {
	uploadURL, err := p.Storage.PresignUpload(ctx, key)
	if err != nil {
		return fmt.Errorf("presign upload: %w", err)
	}
	status, err := p.Storage.UploadToPresignedURL(ctx, uploadURL, content)
	if err != nil {
		return fmt.Errorf("upload processed image: %w", err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("upload processed image: status %d", status)
	}
	return nil
}

// fail records the attempt. The item goes to failed once retries run out or
// the error is permanent, and the task is then not retried by asynq.
func (p *ClothingProcessor) fail(ctx context.Context, clothing *models.Clothing, cause error) error {
	clothing.ProcessRetryTimes++
	clothing.ProcessErrorMessage = services.StrPointer(cause.Error())

	final := errors.Is(cause, errUnprocessable) || clothing.ProcessRetryTimes >= MaxProcessingRetries
	if final {
		clothing.ProcessingStatus = models.ProcessingFailed
	} else {
		clothing.ProcessingStatus = models.ProcessingPending
	}

	log.Error().Err(cause).Int("attempt", clothing.ProcessRetryTimes).Bool("final", final).
		Msgf("[Clothing: %d] Processing failed", clothing.ID)
	sentry.CaptureException(fmt.Errorf("[Clothing: %d] processing failed: %w", clothing.ID, cause))

	if err := p.Clothes.SaveClothing(ctx, clothing); err != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Clothing %d] Error on saving failed status: %w", clothing.ID, err))
		return fmt.Errorf("[Clothing: %d] save failure: %w", clothing.ID, err)
	}
	if final {
		p.Metrics.Inc(ctx, metrics.ClothingProcessed, map[string]string{"outcome": models.ProcessingFailed})
		return fmt.Errorf("[Clothing: %d] %w: %w", clothing.ID, cause, asynq.SkipRetry)
	}
	return fmt.Errorf("[Clothing: %d] %w", clothing.ID, cause)
}

// MergeMetadata fills only the fields the owner left empty. The owner's
// chosen type always wins over the classifier's.
func MergeMetadata(clothing *models.Clothing, meta *services.GarmentMetadata) {
	if meta == nil {
		return
	}
	fill := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fill(&clothing.Name, meta.Name)
	fill(&clothing.Color, meta.Color)
	fill(&clothing.Material, meta.Material)
	fill(&clothing.Brand, meta.Brand)
	fill(&clothing.Season, meta.Season)
	fill(&clothing.Fit, meta.Fit)
	if clothing.ClothingType == "" {
		clothing.ClothingType = meta.Type
	}
	if len(clothing.Styles) == 0 && len(meta.Styles) > 0 {
		clothing.Styles = append(clothing.Styles, meta.Styles...)
	}
	if len(clothing.Occasions) == 0 && len(meta.Occasions) > 0 {
		clothing.Occasions = append(clothing.Occasions, meta.Occasions...)
	}
	if (clothing.Description == nil || *clothing.Description == "") && meta.Description != "" {
		clothing.Description = services.StrPointer(meta.Description)
	}
}
