package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-bin/slotbed/internal/auth"
	"github.com/notes-bin/slotbed/internal/config"
	"github.com/notes-bin/slotbed/internal/model"
)

// PNG 魔数，让 MIME 嗅探通过
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)

type memLog struct {
	records  []model.MediaRecord
	queryErr error
}

func (f *memLog) Insert(_ context.Context, rec *model.MediaRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *memLog) DeleteWhere(_ context.Context, _ string, paths []string) error {
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}
	kept := make([]model.MediaRecord, 0, len(f.records))
	for _, rec := range f.records {
		if !drop[rec.Path] {
			kept = append(kept, rec)
		}
	}
	f.records = kept
	return nil
}

func (f *memLog) QueryByPrefix(_ context.Context, _, prefix string) ([]model.MediaRecord, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []model.MediaRecord
	for _, rec := range f.records {
		if strings.HasPrefix(rec.Path, prefix) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memStore struct {
	objects map[string]bool
}

func (f *memStore) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.objects[key] = true
	return nil
}

func (f *memStore) RemoveMany(_ context.Context, keys []string) error {
	for _, key := range keys {
		delete(f.objects, key)
	}
	return nil
}

func (f *memStore) PublicURL(key string) string {
	return "https://cdn.test/media/" + key
}

func testConfig() *config.Config {
	a := auth.NewAuth("test-secret", config.AdminConfig{})
	cfg := &config.Config{
		Port:          "0",
		JWTSecret:     "test-secret",
		MaxUploadSize: 1 << 20,
		Namespace:     "slots",
		Admin:         config.AdminConfig{ID: "admin", PasswordMD5: a.HashPassword("secret")},
		Pages: []model.PageRegistry{
			{PageID: "home", Slots: []model.SlotDescriptor{
				{SlotID: "hero", DisplayTitle: "Hero Banner"},
				{SlotID: "feature", DisplayTitle: "Feature"},
			}},
			// pricing 也声明 hero，页面间同名 slotId 必须互不影响
			{PageID: "pricing", Slots: []model.SlotDescriptor{
				{SlotID: "hero", DisplayTitle: "Pricing Hero"},
			}},
		},
	}
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Duration = 1
	return cfg
}

func setupTest(t *testing.T) (http.Handler, *memLog, *memStore, *config.Config) {
	t.Helper()
	log := &memLog{}
	store := &memStore{objects: map[string]bool{}}
	cfg := testConfig()
	return SetupRouter(cfg, log, store), log, store, cfg
}

func adminToken(t *testing.T, router http.Handler) string {
	t.Helper()
	body := `{"username":"admin","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["token"]
}

func uploadRequest(t *testing.T, url, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "banner.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type pageResponse struct {
	PageID  string `json:"page_id"`
	IsAdmin bool   `json:"is_admin"`
	Slots   []struct {
		SlotID string `json:"slot_id"`
		URL    string `json:"url"`
	} `json:"slots"`
}

func getPage(t *testing.T, router http.Handler, token string) pageResponse {
	return getPageByID(t, router, "home", token)
}

func getPageByID(t *testing.T, router http.Handler, pageID, token string) pageResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/pages/"+pageID, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp pageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetPageAnonymousEmptySlots(t *testing.T) {
	router, _, _, _ := setupTest(t)

	resp := getPage(t, router, "")
	assert.False(t, resp.IsAdmin)
	require.Len(t, resp.Slots, 2)
	for _, s := range resp.Slots {
		assert.Empty(t, s.URL)
	}
}

func TestGetPageUnknown(t *testing.T) {
	router, _, _, _ := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/pages/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPageDegradesWhenLogDown(t *testing.T) {
	router, log, _, _ := setupTest(t)
	log.queryErr = errors.New("redis down")

	// 日志不可用时页面照常返回，所有位为空
	resp := getPage(t, router, "")
	require.Len(t, resp.Slots, 2)
	for _, s := range resp.Slots {
		assert.Empty(t, s.URL)
	}
}

func TestGetPageAdminFlag(t *testing.T) {
	router, _, _, _ := setupTest(t)
	token := adminToken(t, router)

	resp := getPage(t, router, token)
	assert.True(t, resp.IsAdmin)
}

func TestReplaceSlotRequiresToken(t *testing.T) {
	router, log, store, _ := setupTest(t)

	req := uploadRequest(t, "/pages/home/slots/hero", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, log.records)
	assert.Empty(t, store.objects)
}

func TestReplaceSlotUnknownSlot(t *testing.T) {
	router, _, _, _ := setupTest(t)
	token := adminToken(t, router)

	req := uploadRequest(t, "/pages/home/slots/ghost", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceSlotThenPageShowsURL(t *testing.T) {
	router, log, store, _ := setupTest(t)
	token := adminToken(t, router)

	// 预热缓存
	getPage(t, router, "")

	req := uploadRequest(t, "/pages/home/slots/hero", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var up map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.NotEmpty(t, up["url"])
	assert.True(t, store.objects[up["path"]])
	require.Len(t, log.records, 1)

	// 页面直接反映新图，靠缓存修补而不是重新解析
	log.queryErr = errors.New("redis down")
	resp := getPage(t, router, "")
	var heroURL string
	for _, s := range resp.Slots {
		if s.SlotID == "hero" {
			heroURL = s.URL
		}
	}
	assert.Equal(t, up["url"], heroURL)
}

func TestReplaceDoesNotLeakAcrossPages(t *testing.T) {
	log := &memLog{}
	store := &memStore{objects: map[string]bool{}}
	cfg := testConfig()
	router := SetupRouter(cfg, log, store)
	token := adminToken(t, router)

	// 两个页面的缓存都预热
	getPage(t, router, "")
	getPageByID(t, router, "pricing", "")

	req := uploadRequest(t, "/pages/home/slots/hero", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// pricing 走缓存，hero 仍为空
	resp := getPageByID(t, router, "pricing", "")
	require.Len(t, resp.Slots, 1)
	assert.Empty(t, resp.Slots[0].URL)

	// 重新解析（新路由实例共享同一份日志），pricing 依然拿不到 home 的图
	fresh := SetupRouter(cfg, log, store)
	resp = getPageByID(t, fresh, "pricing", "")
	require.Len(t, resp.Slots, 1)
	assert.Empty(t, resp.Slots[0].URL)

	// home 自己正常拿到新图
	home := getPage(t, fresh, "")
	var heroURL string
	for _, s := range home.Slots {
		if s.SlotID == "hero" {
			heroURL = s.URL
		}
	}
	assert.NotEmpty(t, heroURL)
}

func TestRefreshToken(t *testing.T) {
	router, _, _, _ := setupTest(t)
	token := adminToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(`{"expires_in":60}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _, _, _ := setupTest(t)

	body := `{"username":"admin","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
