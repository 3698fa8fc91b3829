package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"closetapi/models"
	"closetapi/services"
	"closetapi/tasks"
)

type ClothingResponse struct {
	ID               uint                `json:"id"`
	Name             string              `json:"name"`
	Description      *string             `json:"description"`
	ClothingType     models.ClothingType `json:"clothing_type"`
	Status           string              `json:"status"`
	ProcessingStatus string              `json:"processing_status"`
	Uri              *string             `json:"uri,omitempty"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

type ClothingCreatedResponse struct {
	ClothingResponse ClothingResponse `json:"clothes"`
	FileUploadUrl    string           `json:"file_upload_url"`
}

type ClothesListResponse struct {
	Tops        []ClothingResponse `json:"tops"`
	Bottoms     []ClothingResponse `json:"bottoms"`
	Dresses     []ClothingResponse `json:"dresses"`
	Shoes       []ClothingResponse `json:"shoes"`
	Accessories []ClothingResponse `json:"accessories"`
	Outerwear   []ClothingResponse `json:"outerwear"`
	Bags        []ClothingResponse `json:"bags"`
}

func (r *ClothesListResponse) add(item ClothingResponse) {
	switch item.ClothingType {
	case models.ClothingTop:
		r.Tops = append(r.Tops, item)
	case models.ClothingBottom:
		r.Bottoms = append(r.Bottoms, item)
	case models.ClothingDress:
		r.Dresses = append(r.Dresses, item)
	case models.ClothingShoes:
		r.Shoes = append(r.Shoes, item)
	case models.ClothingOuterwear:
		r.Outerwear = append(r.Outerwear, item)
	case models.ClothingBag:
		r.Bags = append(r.Bags, item)
	default:
		r.Accessories = append(r.Accessories, item)
	}
}

func newClothingResponse(item models.Clothing) ClothingResponse {
	return ClothingResponse{
		ID:               item.ID,
		Name:             item.Name,
		Description:      item.Description,
		ClothingType:     item.ClothingType,
		Status:           item.Status,
		ProcessingStatus: item.ProcessingStatus,
		CreatedAt:        item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.Format(time.RFC3339),
	}
}

// imageURLResolver turns object keys into read URLs, going to R2 directly
// when the cache itself fails.
type imageURLResolver struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
}

func (r imageURLResolver) resolve(ctx context.Context, objectKey string) string {
	if objectKey == "" {
		return ""
	}
	url, err := r.URLCache.GetReadURL(ctx, objectKey)
	if err == nil {
		return url
	}

	log.Ctx(ctx).Warn().Err(err).Str("key", objectKey).Msg("url cache failed, presigning directly")
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("failure_type", "cache_system")
		scope.SetExtra("objectKey", objectKey)
		sentry.CaptureException(err)
	})

	url, err = r.AWSService.PresignRead(ctx, objectKey)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("key", objectKey).Msg("direct presign failed")
		sentry.CaptureException(err)
		return ""
	}
	return url
}

// resolveAll fetches URLs for all keys concurrently, keeping their order.
func (r imageURLResolver) resolveAll(ctx context.Context, keys []string) []string {
	urls := make([]string, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(index int, objectKey string) {
			defer wg.Done()
			urls[index] = r.resolve(ctx, objectKey)
		}(i, key)
	}
	wg.Wait()
	return urls
}

type ClothesController struct {
	Clothes    ClothesRepository
	AWSService services.AWSServiceProvider
	Images     imageURLResolver
	Tasks      TaskEnqueuer
}

func (controller *ClothesController) ClothingRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateClothing)
	g.GET("/list", controller.ListClothes)
}

func (controller *ClothesController) CreateClothing(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.ClothingIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	ctx := c.Request().Context()
	logger := log.Ctx(ctx)

	clothingType, _ := models.ParseClothingType(req.ClothingType)
	objectKey := fmt.Sprintf("clothes/%d/%s", userID, uuid.NewString())
	clothing := models.Clothing{
		Name:             req.Name,
		ClothingType:     clothingType,
		OwnerID:          userID,
		Status:           models.StatusTemporary,
		ImageStatus:      models.ImageStatusDraft,
		ProcessingStatus: models.ProcessingIdle,
		ImageURL:         &objectKey,
	}
	if req.Description != "" {
		clothing.Description = services.StrPointer(req.Description)
	}

	uploadUrl, err := controller.AWSService.PresignUpload(ctx, objectKey)
	if err != nil {
		logger.Error().Err(err).Str("name", clothing.Name).Msg("unable to presign upload")
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error while creating clothe with attachment"})
	}
	if req.AddToCloset {
		clothing.ProcessingStatus = models.ProcessingPending
	}
	if err := controller.Clothes.CreateClothing(ctx, &clothing); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save clothing, please try again"})
	}

	if req.AddToCloset {
		if err := controller.enqueueProcessing(ctx, &clothing); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not process clothing, please try again"})
		}
	}

	return c.JSON(http.StatusCreated, ClothingCreatedResponse{
		ClothingResponse: newClothingResponse(clothing),
		FileUploadUrl:    uploadUrl,
	})
}

// enqueueProcessing schedules the add-item pipeline shortly after the upload
// URL is handed out. A failed enqueue marks the item failed.
func (controller *ClothesController) enqueueProcessing(ctx context.Context, clothing *models.Clothing) error {
	task, err := tasks.NewClothingProcessingTask(clothing.ID)
	if err == nil {
		var info *asynq.TaskInfo
		info, err = controller.Tasks.Enqueue(task, asynq.MaxRetry(tasks.MaxProcessingRetries), asynq.Queue(tasks.QueueGenerate), asynq.ProcessIn(15*time.Second))
		if err == nil {
			log.Ctx(ctx).Info().Uint("clothing_id", clothing.ID).Str("task_id", info.ID).Msg("[Queue] process clothing task submitted")
			return nil
		}
	}

	sentry.CaptureException(err)
	clothing.ProcessingStatus = models.ProcessingFailed
	clothing.ProcessErrorMessage = services.StrPointer(err.Error())
	if saveErr := controller.Clothes.SaveClothing(ctx, clothing); saveErr != nil {
		log.Ctx(ctx).Error().Err(saveErr).Uint("clothing_id", clothing.ID).Msg("could not mark clothing as failed")
	}
	return err
}

func (controller *ClothesController) ListClothes(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	clothes, err := controller.Clothes.ListClothes(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to fetch clothes")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}

	keys := make([]string, len(clothes))
	for i, item := range clothes {
		keys[i] = item.ImageKey()
	}
	urls := controller.Images.resolveAll(ctx, keys)

	response := ClothesListResponse{
		Tops:        []ClothingResponse{},
		Bottoms:     []ClothingResponse{},
		Dresses:     []ClothingResponse{},
		Shoes:       []ClothingResponse{},
		Accessories: []ClothingResponse{},
		Outerwear:   []ClothingResponse{},
		Bags:        []ClothingResponse{},
	}
	for i, item := range clothes {
		resp := newClothingResponse(item)
		if urls[i] != "" {
			resp.Uri = services.StrPointer(urls[i])
		}
		response.add(resp)
	}
	return c.JSON(http.StatusOK, response)
}
