package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/notes-bin/slotbed/internal/auth"
	"github.com/notes-bin/slotbed/internal/cache"
	"github.com/notes-bin/slotbed/internal/config"
	"github.com/notes-bin/slotbed/internal/model"
	"github.com/notes-bin/slotbed/internal/slot"
	"github.com/notes-bin/slotbed/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	config *config.Config
	auth   *auth.Auth
	policy *auth.AdminPolicy
	slots  *slot.Service
	cache  *cache.Resolved
	pages  map[string]model.PageRegistry
}

func NewHandler(cfg *config.Config, authService *auth.Auth, policy *auth.AdminPolicy, slots *slot.Service) *Handler {
	pages := make(map[string]model.PageRegistry, len(cfg.Pages))
	for _, p := range cfg.Pages {
		pages[p.PageID] = p
	}
	return &Handler{
		config: cfg,
		auth:   authService,
		policy: policy,
		slots:  slots,
		cache:  cache.NewResolved(),
		pages:  pages,
	}
}

func SetupRouter(cfg *config.Config, log slot.Log, store storage.ObjectStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Duration))

	authService := auth.NewAuth(cfg.JWTSecret, cfg.Admin)
	policy := auth.NewAdminPolicy(cfg.Admin.ID)
	slotService := slot.NewService(log, store, policy, cfg.Admin.ID, cfg.Namespace)
	h := NewHandler(cfg, authService, policy, slotService)

	// 公共路由
	r.Post("/login", h.Login)

	// 需要认证的路由
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Post("/refresh-token", h.RefreshToken)
		r.Put("/pages/{page}/slots/{slotID}", h.ReplaceSlot)
	})

	// 页面解析，匿名可访问；带有效 token 时返回管理员标记
	r.With(h.OptionalAuthMiddleware).Get("/pages/{page}", h.GetPage)

	return r
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	expiresIn := time.Duration(req.ExpiresIn) * time.Second
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	token, err := h.auth.Login(req.Username, req.Password, expiresIn)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExpiresIn int `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	identity := r.Context().Value("identity").(string)
	expiresIn := time.Duration(req.ExpiresIn) * time.Second
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	token, err := h.auth.GenerateToken(identity, expiresIn)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type slotView struct {
	SlotID       string `json:"slot_id"`
	DisplayTitle string `json:"display_title"`
	URL          string `json:"url,omitempty"`
}

func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page")
	registry, ok := h.pages[pageID]
	if !ok {
		respondError(w, http.StatusNotFound, "Page not found")
		return
	}

	identity, _ := r.Context().Value("identity").(string)
	isAdmin := h.policy.Check(identity)

	resolved, ok := h.cache.Get(pageID)
	if !ok {
		var err error
		resolved, err = h.slots.Resolve(r.Context(), pageID, registry.Slots)
		if err != nil {
			// 解析不可用时整页降级成空占位，访客看不到错误
			slog.Error("Failed to resolve page slots", "page", pageID, "error", err)
			resolved = make(map[string]*model.CurrentImage, len(registry.Slots))
		} else {
			h.cache.Set(pageID, resolved)
		}
	}

	views := make([]slotView, 0, len(registry.Slots))
	for _, d := range registry.Slots {
		v := slotView{SlotID: d.SlotID, DisplayTitle: d.DisplayTitle}
		if img := resolved[d.SlotID]; img != nil {
			v.URL = img.URL
		}
		views = append(views, v)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"page_id":  pageID,
		"is_admin": isAdmin,
		"slots":    views,
	})
}

func (h *Handler) ReplaceSlot(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page")
	slotID := chi.URLParam(r, "slotID")
	registry, ok := h.pages[pageID]
	if !ok {
		respondError(w, http.StatusNotFound, "Page not found")
		return
	}
	if !registry.Contains(slotID) {
		respondError(w, http.StatusNotFound, "Slot not found")
		return
	}

	r.ParseMultipartForm(h.config.MaxUploadSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()

	// 验证 MIME 类型
	mimeType, err := detectMIME(file)
	if err != nil || !isImageMIME(mimeType) {
		respondError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	identity := r.Context().Value("identity").(string)
	img, err := h.slots.Replace(r.Context(), identity, pageID, slotID, file, header.Size, mimeType, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, slot.ErrUnauthorized):
			respondError(w, http.StatusForbidden, "Admin access required")
		case errors.Is(err, slot.ErrUploadFailed):
			respondError(w, http.StatusBadGateway, "Failed to store image")
		case errors.Is(err, slot.ErrRecordPersistFailed):
			respondError(w, http.StatusBadGateway, "Failed to save metadata")
		default:
			respondError(w, http.StatusInternalServerError, "Failed to replace image")
		}
		return
	}

	// 原地修补缓存，不做整页重算
	h.cache.Update(pageID, slotID, img)

	respondJSON(w, http.StatusOK, map[string]string{
		"slot_id": slotID,
		"path":    img.Path,
		"url":     img.URL,
	})
}

func detectMIME(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	file.Seek(0, 0)
	return http.DetectContentType(buf[:n]), nil
}

func isImageMIME(mime string) bool {
	return mime == "image/jpeg" || mime == "image/png" || mime == "image/gif" || mime == "image/webp"
}

func respondError(w http.ResponseWriter, status int, message string) {
	slog.Error("Request failed", "status", status, "message", message)
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
