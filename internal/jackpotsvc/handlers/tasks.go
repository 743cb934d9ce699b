package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
)

func (h *Handler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	list, err := h.tasks.List(r.Context(), uid)
	if err != nil {
		log.Errorf("list tasks for user %d: %v", uid, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to load tasks"})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: list})
}

func (h *Handler) CompleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	taskID, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid task id"})
		return
	}

	task, err := h.tasks.Complete(r.Context(), uid, taskID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, service.ErrTaskExpired):
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: err.Error()})
		case errors.Is(err, service.ErrTaskNotVerified), errors.Is(err, service.ErrTaskDone):
			h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
		default:
			log.Errorf("complete task %d for user %d: %v", taskID, uid, err)
			h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "unable to complete task"})
		}
		return
	}
	h.CreateResponse(w, Response{Message: "task completed", Code: http.StatusOK, Data: task})
}
