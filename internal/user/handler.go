package user

import (
	"net/http"

	"oldb/pkg/logger"
	"oldb/pkg/web"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return
	}
	if req.Email == "" || req.Password == "" {
		web.WriteErrors(w, http.StatusBadRequest, web.Errors{
			"email": "Both email and password are required",
		})
		return
	}

	resp, err := h.Service.Login(req.Email, req.Password)
	if err != nil {
		if err == ErrInvalidCredentials {
			web.WriteError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
			return
		}
		logger.Sugar.Errorf("Login failed for %s: %v", req.Email, err)
		web.WriteError(w, http.StatusInternalServerError, "Login failed.")
		return
	}
	web.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	minis, err := h.Service.Repo.Minis()
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, minis)
}
