package controllers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"
	"closetapi/stylist"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	return &CustomValidator{validator: v}
}

// ClothesRepository is the slice of dbhelper.ClothesStore the handlers need.
type ClothesRepository interface {
	ListClothes(ctx context.Context, ownerID uint) ([]models.Clothing, error)
	CreateClothing(ctx context.Context, clothing *models.Clothing) error
	SaveClothing(ctx context.Context, clothing *models.Clothing) error
}

type PushTokenRegistry interface {
	RegisterToken(ctx context.Context, userID uint, platform models.Platform, token string) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ServerDeps struct {
	JWTSecret  string
	Clothes    ClothesRepository
	PushTokens PushTokenRegistry
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Tasks      TaskEnqueuer
	Stylist    *stylist.Orchestrator
	Sessions   *stylist.Store
	Metrics    *metrics.Registry
}

func SetupServer(deps ServerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	e.Use(RequestLogger(deps.Metrics))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", deps.Metrics.Handler)

	images := imageURLResolver{AWSService: deps.AWSService, URLCache: deps.URLCache}
	auth := []echo.MiddlewareFunc{JWTMiddleware(deps.JWTSecret), CurrentUserMiddleware}

	closetGroup := e.Group("/closet", auth...)

	clothesController := ClothesController{
		Clothes:    deps.Clothes,
		AWSService: deps.AWSService,
		Images:     images,
		Tasks:      deps.Tasks,
	}
	clothesController.ClothingRoutes(closetGroup.Group("/clothes"))

	userDataController := UserDataController{PushTokens: deps.PushTokens}
	userDataController.UserDataRoutes(closetGroup)

	stylistController := StylistController{
		Clothes:  deps.Clothes,
		Stylist:  deps.Stylist,
		Sessions: deps.Sessions,
		Images:   images,
	}
	stylistController.StylistRoutes(e.Group("/stylist", auth...))

	return e
}
