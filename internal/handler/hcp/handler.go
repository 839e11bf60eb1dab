package hcp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	"github.com/zhouzirui/hcp-logger/backend/pkg/utils"
)

// Handler HCP 目录的HTTP处理器
type Handler struct {
	directory hcp.Store
}

// New 创建HCP目录处理器
func New(directory hcp.Store) *Handler {
	return &Handler{
		directory: directory,
	}
}

// RegisterRoutes 注册HCP目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/hcps", h.handleListHCPs)
	r.Get("/hcps/{hcpID}", h.handleGetHCP)
}

func (h *Handler) handleListHCPs(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.directory.List())
}

func (h *Handler) handleGetHCP(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.directory.FindByID(chi.URLParam(r, "hcpID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "hcp not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
