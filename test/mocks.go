package test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"closetapi/models"
	"closetapi/services"
)

type AWSProviderMock struct {
	MockUrl string

	mu      sync.Mutex
	Uploads map[string][]byte
	Err     error
}

func (m *AWSProviderMock) PresignUpload(ctx context.Context, objectKey string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", objectKey), nil
}

func (m *AWSProviderMock) PresignRead(ctx context.Context, objectKey string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.MockUrl != "" {
		return m.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s?read", objectKey), nil
}

func (m *AWSProviderMock) UploadToPresignedURL(ctx context.Context, url string, content []byte) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Uploads == nil {
		m.Uploads = map[string][]byte{}
	}
	m.Uploads[url] = content
	return 204, nil
}

type URLCacheMock struct {
	Err error
}

func (m URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if objectKey == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + objectKey, nil
}

// ChatProviderMock answers with Replies in order, then with Content. When
// Release is set every call blocks until it is closed or the context ends.
type ChatProviderMock struct {
	mu      sync.Mutex
	Replies []string
	Content string
	Err     error
	Calls   [][]services.ChatMessage
	Started chan struct{}
	Release chan struct{}
}

func (m *ChatProviderMock) CreateChatCompletion(ctx context.Context, messages []services.ChatMessage) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, slices.Clone(messages))
	started, release := m.Started, m.Release
	content := m.Content
	if len(m.Replies) > 0 {
		content, m.Replies = m.Replies[0], m.Replies[1:]
	}
	err := m.Err
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

func (m *ChatProviderMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *ChatProviderMock) LastCall() []services.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

type ClassifierMock struct {
	Meta  *services.GarmentMetadata
	Err   error
	Calls int
}

func (m *ClassifierMock) ClassifyGarment(ctx context.Context, image []byte, mimeType string) (*services.GarmentMetadata, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	meta := *m.Meta
	return &meta, nil
}

type BackgroundRemoverMock struct {
	Out []byte
	Err error
}

func (m BackgroundRemoverMock) RemoveBackground(ctx context.Context, image []byte) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Out, nil
}

// ClothesStoreMock is an in-memory stand-in for dbhelper.ClothesStore.
type ClothesStoreMock struct {
	mu      sync.Mutex
	items   map[uint]models.Clothing
	nextID  uint
	ListErr error
	SaveErr error
}

func NewClothesStoreMock(items ...models.Clothing) *ClothesStoreMock {
	m := &ClothesStoreMock{items: map[uint]models.Clothing{}}
	for _, item := range items {
		if item.ID > m.nextID {
			m.nextID = item.ID
		}
		m.items[item.ID] = item
	}
	return m
}

func (m *ClothesStoreMock) ListClothes(ctx context.Context, ownerID uint) ([]models.Clothing, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Clothing
	for _, item := range m.items {
		if item.OwnerID == ownerID && item.Status == models.StatusInCloset {
			out = append(out, item)
		}
	}
	slices.SortFunc(out, func(a, b models.Clothing) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (m *ClothesStoreMock) CreateClothing(ctx context.Context, clothing *models.Clothing) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	clothing.ID = m.nextID
	m.items[clothing.ID] = *clothing
	return nil
}

func (m *ClothesStoreMock) GetClothing(ctx context.Context, id uint) (*models.Clothing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (m *ClothesStoreMock) SaveClothing(ctx context.Context, clothing *models.Clothing) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[clothing.ID] = *clothing
	return nil
}

func (m *ClothesStoreMock) ListStaleProcessing(ctx context.Context, before time.Time, maxRetries int, limit int) ([]models.Clothing, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Clothing
	for _, item := range m.items {
		waiting := item.ProcessingStatus == models.ProcessingPending || item.ProcessingStatus == models.ProcessingGenerating
		if waiting && item.UpdatedAt.Before(before) && item.ProcessRetryTimes < maxRetries {
			out = append(out, item)
		}
	}
	slices.SortFunc(out, func(a, b models.Clothing) int { return int(a.ID) - int(b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *ClothesStoreMock) Item(id uint) models.Clothing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

type PushTokenStoreMock struct {
	mu     sync.Mutex
	Tokens []models.UserPushToken
}

func (m *PushTokenStoreMock) RegisterToken(ctx context.Context, userID uint, platform models.Platform, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Tokens {
		if m.Tokens[i].Token == token {
			m.Tokens[i].UserAccountID = userID
			m.Tokens[i].Platform = platform
			m.Tokens[i].Active = true
			return nil
		}
	}
	m.Tokens = append(m.Tokens, models.UserPushToken{
		JsonModel:     models.JsonModel{ID: uint(len(m.Tokens) + 1)},
		UserAccountID: userID,
		Platform:      platform,
		Token:         token,
		Active:        true,
	})
	return nil
}

func (m *PushTokenStoreMock) ActiveTokens(ctx context.Context, userID uint) ([]models.UserPushToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPushToken
	for _, t := range m.Tokens {
		if t.UserAccountID == userID && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

type EnqueuerMock struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
	Err   error
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.Tasks)), Type: task.Type()}, nil
}

type Notification struct {
	UserID uint
	Title  string
	Body   string
	Data   map[string]string
}

type NotifierMock struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

func (m *NotifierMock) Notify(ctx context.Context, userID uint, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, Notification{UserID: userID, Title: title, Body: body, Data: data})
	return m.Err
}
