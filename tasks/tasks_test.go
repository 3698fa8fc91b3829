package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/metrics"
	"closetapi/models"
	"closetapi/services"
	"closetapi/test"
)

func stringPtr(s string) *string {
	return &s
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	clothes    *test.ClothesStoreMock
	aws        *test.AWSProviderMock
	classifier *test.ClassifierMock
	notifier   *test.NotifierMock
	metrics    *metrics.Registry
	processor  *ClothingProcessor
}

func newFixture(t *testing.T, srv *httptest.Server, item models.Clothing) *fixture {
	t.Helper()
	f := &fixture{
		clothes: test.NewClothesStoreMock(item),
		aws:     &test.AWSProviderMock{MockUrl: srv.URL},
		classifier: &test.ClassifierMock{Meta: &services.GarmentMetadata{
			Name:      "Red cotton tee",
			Type:      models.ClothingTop,
			Color:     "red",
			Material:  "cotton",
			Styles:    []string{"casual"},
			Occasions: []string{"weekend"},
		}},
		notifier: &test.NotifierMock{},
		metrics:  metrics.NewRegistry("closetapi-test"),
	}
	f.processor = &ClothingProcessor{
		Clothes:    f.clothes,
		Storage:    f.aws,
		Background: test.BackgroundRemoverMock{Out: []byte("processed-png")},
		Classifier: f.classifier,
		Notifier:   f.notifier,
		Metrics:    f.metrics,
		HTTPClient: srv.Client(),
	}
	return f
}

func pendingClothing() models.Clothing {
	return models.Clothing{
		JsonModel:        models.JsonModel{ID: 1},
		Name:             "My tee",
		ClothingType:     models.ClothingTop,
		OwnerID:          7,
		Status:           models.StatusTemporary,
		ImageStatus:      models.ImageStatusDraft,
		ProcessingStatus: models.ProcessingPending,
		ImageURL:         stringPtr("clothes/7/original"),
	}
}

func processTask(t *testing.T, f *fixture, id uint) error {
	t.Helper()
	task, err := NewClothingProcessingTask(id)
	require.NoError(t, err)
	return f.processor.ProcessClothingTask(context.Background(), task)
}

func TestNewClothingProcessingTask(t *testing.T) {
	task, err := NewClothingProcessingTask(42)
	require.NoError(t, err)

	assert.Equal(t, TypeProcessClothing, task.Type())
	var payload ClothingProcessingPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(42), payload.ClothingID)
}

func TestProcessClothingTaskOk(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())

	require.NoError(t, processTask(t, f, 1))

	item := f.clothes.Item(1)
	assert.Equal(t, models.ProcessingCompleted, item.ProcessingStatus)
	assert.Equal(t, models.StatusInCloset, item.Status)
	assert.Equal(t, models.ImageStatusUploaded, item.ImageStatus)
	require.NotNil(t, item.ProcessedImageURL)
	assert.Equal(t, "clothes/processed/1.png", *item.ProcessedImageURL)
	assert.Nil(t, item.ProcessErrorMessage)

	// owner's name and type are kept, empty fields are filled
	assert.Equal(t, "My tee", item.Name)
	assert.Equal(t, models.ClothingTop, item.ClothingType)
	assert.Equal(t, "red", item.Color)
	assert.Equal(t, "cotton", item.Material)
	assert.Equal(t, pq.StringArray{"casual"}, item.Styles)

	assert.Equal(t, []byte("processed-png"), f.aws.Uploads["https://fakebucketurl.com/clothes/processed/1.png"])
	assert.Equal(t, 1, f.classifier.Calls)

	require.Len(t, f.notifier.Sent, 1)
	assert.Equal(t, uint(7), f.notifier.Sent[0].UserID)
	assert.Equal(t, "1", f.notifier.Sent[0].Data["clothing_id"])
	assert.EqualValues(t, 1, f.metrics.Value(metrics.ClothingProcessed, map[string]string{"outcome": "completed"}))
}

func TestProcessClothingTaskBackgroundFailureKeepsOriginal(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())
	f.processor.Background = test.BackgroundRemoverMock{Err: errors.New("remover down")}

	require.NoError(t, processTask(t, f, 1))

	item := f.clothes.Item(1)
	assert.Equal(t, models.ProcessingCompleted, item.ProcessingStatus)
	assert.Nil(t, item.ProcessedImageURL)
	assert.Equal(t, "clothes/7/original", item.ImageKey())
	assert.Empty(t, f.aws.Uploads)
}

func TestProcessClothingTaskRetriesThenFails(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusNotFound, nil), pendingClothing())

	for attempt := 1; attempt < MaxProcessingRetries; attempt++ {
		err := processTask(t, f, 1)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry), "attempt %d should be retried", attempt)

		item := f.clothes.Item(1)
		assert.Equal(t, attempt, item.ProcessRetryTimes)
		assert.Equal(t, models.ProcessingPending, item.ProcessingStatus)
		require.NotNil(t, item.ProcessErrorMessage)
		assert.Contains(t, *item.ProcessErrorMessage, "status code: 404")
	}

	err := processTask(t, f, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	item := f.clothes.Item(1)
	assert.Equal(t, models.ProcessingFailed, item.ProcessingStatus)
	assert.Equal(t, MaxProcessingRetries, item.ProcessRetryTimes)
	assert.Equal(t, models.StatusTemporary, item.Status)
	assert.Empty(t, f.notifier.Sent)
	assert.EqualValues(t, 1, f.metrics.Value(metrics.ClothingProcessed, map[string]string{"outcome": "failed"}))
}

func TestProcessClothingTaskRejectsNonImage(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, []byte("<html>not an image</html>")), pendingClothing())

	err := processTask(t, f, 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	item := f.clothes.Item(1)
	assert.Equal(t, models.ProcessingFailed, item.ProcessingStatus)
	assert.Equal(t, 1, item.ProcessRetryTimes)
	assert.Zero(t, f.classifier.Calls)
}

func TestProcessClothingTaskWithoutImage(t *testing.T) {
	item := pendingClothing()
	item.ImageURL = nil
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), item)

	err := processTask(t, f, 1)

	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, models.ProcessingFailed, f.clothes.Item(1).ProcessingStatus)
}

func TestProcessClothingTaskClassifierError(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())
	f.classifier.Err = errors.New("quota exceeded")

	err := processTask(t, f, 1)

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, models.ProcessingPending, f.clothes.Item(1).ProcessingStatus)
}

func TestProcessClothingTaskNotificationErrorIsIgnored(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())
	f.notifier.Err = errors.New("no active tokens")

	require.NoError(t, processTask(t, f, 1))
	assert.Equal(t, models.ProcessingCompleted, f.clothes.Item(1).ProcessingStatus)
}

func TestProcessClothingTaskSkipsCompleted(t *testing.T) {
	item := pendingClothing()
	item.ProcessingStatus = models.ProcessingCompleted
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), item)

	require.NoError(t, processTask(t, f, 1))
	assert.Zero(t, f.classifier.Calls)
	assert.Empty(t, f.notifier.Sent)
}

func TestProcessClothingTaskMissingItem(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())

	err := processTask(t, f, 404)

	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessClothingTaskBadPayload(t *testing.T) {
	f := newFixture(t, imageServer(t, http.StatusOK, pngBytes(t)), pendingClothing())

	err := f.processor.ProcessClothingTask(context.Background(), asynq.NewTask(TypeProcessClothing, []byte("{")))

	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestMergeMetadataKeepsOwnerValues(t *testing.T) {
	clothing := &models.Clothing{
		Name:        "Grandpa's cardigan",
		Color:       "beige",
		Description: stringPtr("knitted by hand"),
		Styles:      pq.StringArray{"vintage"},
	}
	MergeMetadata(clothing, &services.GarmentMetadata{
		Name:        "Wool cardigan",
		Type:        models.ClothingTop,
		Color:       "cream",
		Brand:       "Unknown",
		Styles:      []string{"classic"},
		Occasions:   []string{"office"},
		Description: "A warm wool cardigan",
	})

	assert.Equal(t, "Grandpa's cardigan", clothing.Name)
	assert.Equal(t, "beige", clothing.Color)
	assert.Equal(t, "Unknown", clothing.Brand)
	assert.Equal(t, models.ClothingTop, clothing.ClothingType)
	assert.Equal(t, pq.StringArray{"vintage"}, clothing.Styles)
	assert.Equal(t, pq.StringArray{"office"}, clothing.Occasions)
	assert.Equal(t, "knitted by hand", *clothing.Description)

	MergeMetadata(clothing, nil)
	assert.Equal(t, "Grandpa's cardigan", clothing.Name)
}
