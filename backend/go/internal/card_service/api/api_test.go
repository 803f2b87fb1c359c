package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"Synapse/backend/go/internal/card_service/resolver"
	"Synapse/backend/go/internal/card_service/service"
	"Synapse/backend/go/internal/card_service/store"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"
	"Synapse/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeCards struct {
	assembled []service.AssembleRequest
	card      *models.KnowledgeCard
	err       error
	deleted   []string
	listArgs  []int
}

func (f *fakeCards) Assemble(ctx context.Context, req service.AssembleRequest) (*models.KnowledgeCard, error) {
	f.assembled = append(f.assembled, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.card, nil
}

func (f *fakeCards) ListCards(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error) {
	f.listArgs = []int{skip, limit}
	return []*models.KnowledgeCard{f.card}, f.err
}

func (f *fakeCards) DeleteCard(ctx context.Context, userID, cardID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID+"/"+cardID)
	return nil
}

func (f *fakeCards) GenerateQnA(ctx context.Context, userID, cardID string, count int) ([]models.QnAPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.QnAPair, count)
	for i := range out {
		out[i] = models.QnAPair{Question: "q", Answer: "a"}
	}
	return out, nil
}

func (f *fakeCards) ExportCard(ctx context.Context, userID, cardID string) ([]byte, error) {
	return []byte("PK"), f.err
}

type fakeClusters struct {
	reclustered []string
	err         error
}

func (f *fakeClusters) ListClusters(ctx context.Context, userID string) ([]*models.Cluster, error) {
	return []*models.Cluster{{ID: "c1", UserID: userID, TopicName: "Go"}}, nil
}

func (f *fakeClusters) Recluster(ctx context.Context, userID string) (*models.ReclusterOutcome, error) {
	f.reclustered = append(f.reclustered, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReclusterOutcome{Status: models.ReclusterRecomputed, ClusterCount: 2}, nil
}

type fakeQueue struct{ users []string }

func (q *fakeQueue) Enqueue(ctx context.Context, userID string) error {
	q.users = append(q.users, userID)
	return nil
}

func newRouter(t *testing.T, cards *fakeCards, clusters *fakeClusters, queue Enqueuer, limiter *ratelimiter.KeyedLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewAPI(cards, clusters, queue, 1024, logger.Nop()), testSecret, limiter)
	return r
}

func token(t *testing.T, sub interface{}) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(r http.Handler, method, path, auth string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/cards", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/cards", "Token abc", nil, "").Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/cards", "Bearer "+forged, nil, "").Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "", nil, "").Code)
}

func TestAuth_NumericSubject(t *testing.T) {
	clusters := &fakeClusters{}
	r := newRouter(t, &fakeCards{}, clusters, nil, nil)

	w := do(r, http.MethodPost, "/api/v1/clusters/recompute", token(t, 42), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"42"}, clusters.reclustered)
}

func TestCreateCard(t *testing.T) {
	cards := &fakeCards{card: &models.KnowledgeCard{ID: "k1", Title: "Go Scheduling"}}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)

	body, _ := json.Marshal(map[string]string{"source_url": " https://example.com/a ", "note": "read later"})
	w := do(r, http.MethodPost, "/api/v1/cards", token(t, "u1"), body, "application/json")
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, cards.assembled, 1)
	assert.Equal(t, "u1", cards.assembled[0].UserID)
	assert.Equal(t, "https://example.com/a", cards.assembled[0].Source.URL)
	assert.Equal(t, "read later", cards.assembled[0].Note)

	var got models.KnowledgeCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Go Scheduling", got.Title)
}

func TestCreateCard_ErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{models.NewPipelineError(models.KindFetchFailed, "resolve", errors.New("403")), http.StatusUnprocessableEntity},
		{models.NewPipelineError(models.KindTranscriptUnavailable, "resolve", errors.New("none")), http.StatusUnprocessableEntity},
		{models.NewPipelineError(models.KindUnsupportedFileType, "resolve", errors.New("png")), http.StatusUnsupportedMediaType},
		{models.NewPipelineError(models.KindGenerationFailed, "title", errors.New("quota")), http.StatusBadGateway},
		{models.NewPipelineError(models.KindEmbeddingFailed, "embed", errors.New("dim")), http.StatusBadGateway},
		{errors.New("mongo down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		cards := &fakeCards{err: tc.err}
		r := newRouter(t, cards, &fakeClusters{}, nil, nil)
		w := do(r, http.MethodPost, "/api/v1/cards", token(t, "u1"), []byte(`{"source_url":"https://x"}`), "application/json")
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestCreateCard_KindInBody(t *testing.T) {
	cards := &fakeCards{err: models.NewPipelineError(models.KindFetchFailed, "resolve", errors.New("403"))}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)
	w := do(r, http.MethodPost, "/api/v1/cards", token(t, "u1"), []byte(`{"source_url":"https://x"}`), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(models.KindFetchFailed), body["kind"])
}

func multipartBody(t *testing.T, name string, data []byte, note string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("note", note))
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUploadCard(t *testing.T) {
	cards := &fakeCards{card: &models.KnowledgeCard{ID: "k1"}}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)

	body, ct := multipartBody(t, "notes.pdf", []byte("%PDF-1.4 ..."), "ch. 3")
	w := do(r, http.MethodPost, "/api/v1/cards/upload", token(t, "u1"), body, ct)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, cards.assembled, 1)
	doc := cards.assembled[0].Source.Document
	require.NotNil(t, doc)
	assert.Equal(t, "notes.pdf", doc.Filename)
	assert.Equal(t, []byte("%PDF-1.4 ..."), doc.Data)
	assert.Equal(t, "ch. 3", cards.assembled[0].Note)
}

func TestUploadCard_TooLarge(t *testing.T) {
	cards := &fakeCards{}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)

	body, ct := multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 2048), "")
	w := do(r, http.MethodPost, "/api/v1/cards/upload", token(t, "u1"), body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, cards.assembled)
}

func TestUploadCard_ZeroByteFileIsUnsupported(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cards := store.NewMemoryCardStore()
	res := resolver.New(nil, nil, nil, resolver.NewDocumentExtractor(1024), 10, logger.Nop())
	svc := service.NewCardService(res, nil, nil, cards, nil, 6000, logger.Nop())
	r := gin.New()
	RegisterRoutes(r, NewAPI(svc, &fakeClusters{}, nil, 1024, logger.Nop()), testSecret, nil)

	body, ct := multipartBody(t, "report.pdf", []byte{}, "")
	w := do(r, http.MethodPost, "/api/v1/cards/upload", token(t, "u1"), body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Contains(t, w.Body.String(), string(models.KindUnsupportedFileType))

	stored, err := cards.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUploadCard_MissingFile(t *testing.T) {
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, nil)
	w := do(r, http.MethodPost, "/api/v1/cards/upload", token(t, "u1"), []byte("note=x"), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCards_Paging(t *testing.T) {
	cards := &fakeCards{card: &models.KnowledgeCard{ID: "k1"}}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/cards?skip=5&limit=500", token(t, "u1"), nil, "").Code)
	assert.Equal(t, []int{5, maxPageLimit}, cards.listArgs)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/cards?skip=-1", token(t, "u1"), nil, "").Code)
}

func TestDeleteCard(t *testing.T) {
	cards := &fakeCards{}
	r := newRouter(t, cards, &fakeClusters{}, nil, nil)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/v1/cards/k9", token(t, "u1"), nil, "").Code)
	assert.Equal(t, []string{"u1/k9"}, cards.deleted)

	cards.err = models.ErrNotFound
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/cards/k9", token(t, "u1"), nil, "").Code)
}

func TestGenerateQnA(t *testing.T) {
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, nil)

	w := do(r, http.MethodPost, "/api/v1/cards/k1/qna?count=3", token(t, "u1"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		QnA []models.QnAPair `json:"qna"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.QnA, 3)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/cards/k1/qna?count=zero", token(t, "u1"), nil, "").Code)
}

func TestExportCard(t *testing.T) {
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, nil)
	w := do(r, http.MethodGet, "/api/v1/cards/k1/export", token(t, "u1"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.DOCXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "k1.docx")
}

func TestRecompute_QueuedWhenConfigured(t *testing.T) {
	clusters := &fakeClusters{}
	queue := &fakeQueue{}
	r := newRouter(t, &fakeCards{}, clusters, queue, nil)

	w := do(r, http.MethodPost, "/api/v1/clusters/recompute", token(t, "u1"), nil, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"u1"}, queue.users)
	assert.Empty(t, clusters.reclustered)
}

func TestRecompute_DistanceErrorIs500(t *testing.T) {
	clusters := &fakeClusters{err: models.NewPipelineError(models.KindDistanceComputation, "distance", errors.New("nan"))}
	r := newRouter(t, &fakeCards{}, clusters, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/api/v1/clusters/recompute", token(t, "u1"), nil, "").Code)
}

func TestListClusters(t *testing.T) {
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, nil)
	w := do(r, http.MethodGet, "/api/v1/clusters", token(t, "u1"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Go", got[0]["topic_name"])
	assert.NotContains(t, got[0], "centroid_vector")
}

func TestUserRateLimit_IsPerUser(t *testing.T) {
	limiter, err := ratelimiter.NewKeyedLimiter(16, func() ratelimiter.RateLimiter {
		return ratelimiter.NewTokenBucket(0, 1)
	})
	require.NoError(t, err)
	r := newRouter(t, &fakeCards{}, &fakeClusters{}, nil, limiter)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/clusters", token(t, "u1"), nil, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/api/v1/clusters", token(t, "u1"), nil, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/clusters", token(t, "u2"), nil, "").Code)
}
