package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/service"
)

// TaskHandler serves the task lifecycle endpoints.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), account, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Deadline:    req.Deadline,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse[*domain.Task]{
		Items:  tasks,
		Offset: filter.Page.Offset,
		Limit:  filter.Page.Limit,
	})
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ListByAccount handles GET /api/users/{id}/tasks.
func (h *TaskHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	role, err := domain.ParseTaskRole(r.URL.Query().Get("role"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.ListByAccount(r.Context(), id, role, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse[*domain.Task]{
		Items:  tasks,
		Offset: page.Offset,
		Limit:  page.Limit,
	})
}

// Claim handles POST /api/tasks/{id}/claim.
func (h *TaskHandler) Claim(w http.ResponseWriter, r *http.Request) {
	account, taskID, ok := h.actorAndTask(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Claim(r.Context(), account, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to claim task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Complete handles POST /api/tasks/{id}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	account, taskID, ok := h.actorAndTask(w, r)
	if !ok {
		return
	}
	completion, err := h.tasks.Complete(r.Context(), account, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCompleteTaskResponse(completion))
}

// Cancel handles POST /api/tasks/{id}/cancel.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	account, taskID, ok := h.actorAndTask(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Cancel(r.Context(), account, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to cancel task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) actorAndTask(w http.ResponseWriter, r *http.Request) (*domain.Account, uuid.UUID, bool) {
	account, ok := accountFromRequest(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}
	return account, taskID, true
}
