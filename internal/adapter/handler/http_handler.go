package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/core/service"
	"github.com/rl1809/wms-engine/internal/port"
)

type HTTPHandler struct {
	engine *service.Engine
	guard  port.IdempotencyGuard
	logger service.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHTTPHandler wires the REST surface. guard may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHTTPHandler(engine *service.Engine, guard port.IdempotencyGuard, logger service.Logger) *HTTPHandler {
	return &HTTPHandler{engine: engine, guard: guard, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/tasks", h.CreateTask)
	mux.HandleFunc("GET /api/tasks", h.ListTasks)
	mux.HandleFunc("GET /api/tasks/{id}", h.GetTask)
	mux.HandleFunc("POST /api/tasks/{id}/assign", h.AssignTask)
	mux.HandleFunc("POST /api/tasks/{id}/start", h.StartTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.CompleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/fail", h.FailTask)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", h.CancelTask)
	mux.HandleFunc("GET /api/tasks/{id}/pick-items", h.ListPickItems)
	mux.HandleFunc("GET /api/tasks/{id}/inspection-criteria", h.InspectionCriteria)
	mux.HandleFunc("POST /api/tasks/{id}/inspection", h.SubmitInspection)
	mux.HandleFunc("GET /api/tasks/{id}/inspection", h.GetInspection)
	mux.HandleFunc("POST /api/tasks/{id}/putaway/confirm", h.ConfirmPutaway)

	mux.HandleFunc("POST /api/pick-lists", h.GeneratePickList)
	mux.HandleFunc("POST /api/pick-items/{id}/pick", h.RecordPick)
	mux.HandleFunc("POST /api/pick-items/{id}/short", h.RecordShortPick)
	mux.HandleFunc("POST /api/pick-items/{id}/skip", h.SkipPick)

	mux.HandleFunc("POST /api/putaway", h.CreatePutaway)
	mux.HandleFunc("GET /api/putaway/suggestion", h.SuggestPutaway)

	mux.HandleFunc("POST /api/cycle-counts", h.CreateCount)
	mux.HandleFunc("GET /api/cycle-counts/{id}", h.GetCount)
	mux.HandleFunc("POST /api/cycle-counts/{id}/start", h.StartCount)
	mux.HandleFunc("POST /api/cycle-counts/{id}/submit", h.SubmitCount)
	mux.HandleFunc("POST /api/cycle-counts/{id}/approve", h.ApproveCount)
	mux.HandleFunc("POST /api/cycle-counts/{id}/reject", h.RejectCount)
	mux.HandleFunc("POST /api/cycle-counts/{id}/cancel", h.CancelCount)
	mux.HandleFunc("POST /api/cycle-count-items/{id}/record", h.RecordCount)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Tasks ────────────────────────────────────────────────────────────────────

type CreateTaskRequest struct {
	Type                     domain.TaskType   `json:"type"`
	Priority                 int               `json:"priority"`
	ClientID                 string            `json:"client_id"`
	ProductID                string            `json:"product_id"`
	OrderID                  string            `json:"order_id"`
	OrderKind                domain.OrderKind  `json:"order_kind"`
	SourceLocationID         string            `json:"source_location_id"`
	SourceSublocationID      string            `json:"source_sublocation_id"`
	DestinationLocationID    string            `json:"destination_location_id"`
	DestinationSublocationID string            `json:"destination_sublocation_id"`
	ContainerID              string            `json:"container_id"`
	LotID                    string            `json:"lot_id"`
	QtyRequested             int               `json:"qty_requested"`
	Metadata                 map[string]string `json:"metadata"`
	Notes                    string            `json:"notes"`
}

func (h *HTTPHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Tasks.Create(r.Context(), domain.TaskSpec{
		Type:                     req.Type,
		Priority:                 req.Priority,
		ClientID:                 req.ClientID,
		ProductID:                req.ProductID,
		OrderID:                  req.OrderID,
		OrderKind:                req.OrderKind,
		SourceLocationID:         req.SourceLocationID,
		SourceSublocationID:      req.SourceSublocationID,
		DestinationLocationID:    req.DestinationLocationID,
		DestinationSublocationID: req.DestinationSublocationID,
		ContainerID:              req.ContainerID,
		LotID:                    req.LotID,
		QtyRequested:             req.QtyRequested,
		Metadata:                 req.Metadata,
		Notes:                    req.Notes,
	})
	h.respond(w, http.StatusCreated, taskView(task), err)
}

func (h *HTTPHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TaskFilter{
		Type:       domain.TaskType(q.Get("type")),
		LocationID: q.Get("location_id"),
		AssignedTo: q.Get("assigned_to"),
		ClientID:   q.Get("client_id"),
	}
	if s := q.Get("status"); s != "" {
		for _, st := range strings.Split(s, ",") {
			filter.Statuses = append(filter.Statuses, domain.TaskStatus(strings.TrimSpace(st)))
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	tasks, err := h.engine.Tasks.ListPending(r.Context(), filter)
	views := make([]*TaskView, len(tasks))
	for i := range tasks {
		views[i] = taskView(&tasks[i])
	}
	h.respond(w, http.StatusOK, views, err)
}

func (h *HTTPHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.Tasks.Get(r.Context(), r.PathValue("id"))
	h.respond(w, http.StatusOK, taskView(task), err)
}

type AssignRequest struct {
	Assignee string `json:"assignee"`
}

func (h *HTTPHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Tasks.Assign(r.Context(), r.PathValue("id"), req.Assignee)
	h.respond(w, http.StatusOK, taskView(task), err)
}

func (h *HTTPHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.Tasks.Start(r.Context(), r.PathValue("id"))
	h.respond(w, http.StatusOK, taskView(task), err)
}

type CompleteRequest struct {
	QtyCompleted *int   `json:"qty_completed"`
	Notes        string `json:"notes"`
	ActorID      string `json:"actor_id"`
}

func (h *HTTPHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Tasks.Complete(r.Context(), r.PathValue("id"),
		service.CompleteInput{QtyCompleted: req.QtyCompleted, Notes: req.Notes}, req.ActorID)
	h.respond(w, http.StatusOK, taskView(task), err)
}

type FailRequest struct {
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

func (h *HTTPHandler) FailTask(w http.ResponseWriter, r *http.Request) {
	var req FailRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Tasks.Fail(r.Context(), r.PathValue("id"), req.Reason, req.ActorID)
	h.respond(w, http.StatusOK, taskView(task), err)
}

type ActorRequest struct {
	ActorID string `json:"actor_id"`
}

func (h *HTTPHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Tasks.Cancel(r.Context(), r.PathValue("id"), req.ActorID)
	h.respond(w, http.StatusOK, taskView(task), err)
}

// ── Picking ──────────────────────────────────────────────────────────────────

type DemandLineRequest struct {
	DemandLineID string `json:"demand_line_id"`
	ProductID    string `json:"product_id"`
	QtyNeeded    int    `json:"qty_needed"`
}

type PickListRequest struct {
	OrderID    string              `json:"order_id"`
	ClientID   string              `json:"client_id"`
	LocationID string              `json:"location_id"`
	Priority   int                 `json:"priority"`
	Lines      []DemandLineRequest `json:"lines"`
	ActorID    string              `json:"actor_id"`
}

func (h *HTTPHandler) GeneratePickList(w http.ResponseWriter, r *http.Request) {
	var req PickListRequest
	if !decode(w, r, &req) {
		return
	}
	lines := make([]domain.DemandLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.DemandLine{DemandLineID: l.DemandLineID, ProductID: l.ProductID, QtyNeeded: l.QtyNeeded}
	}
	result, err := h.engine.Allocation.GeneratePickList(r.Context(), domain.PickListRequest{
		OrderID:    req.OrderID,
		ClientID:   req.ClientID,
		LocationID: req.LocationID,
		Priority:   req.Priority,
		Lines:      lines,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Task == nil {
		status = http.StatusOK
	}
	writeJSON(w, status, pickListView(result))
}

func (h *HTTPHandler) ListPickItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.Allocation.ListPickItems(r.Context(), r.PathValue("id"))
	h.respond(w, http.StatusOK, pickItemViews(items), err)
}

type PickRequest struct {
	Qty     int    `json:"qty"`
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

func (h *HTTPHandler) RecordPick(w http.ResponseWriter, r *http.Request) {
	var req PickRequest
	if !decode(w, r, &req) || !h.claim(w, r) {
		return
	}
	item, err := h.engine.Allocation.RecordPick(r.Context(), r.PathValue("id"), req.Qty, req.ActorID)
	h.release(r, err)
	h.respondItem(w, item, err)
}

func (h *HTTPHandler) RecordShortPick(w http.ResponseWriter, r *http.Request) {
	var req PickRequest
	if !decode(w, r, &req) || !h.claim(w, r) {
		return
	}
	item, err := h.engine.Allocation.RecordShortPick(r.Context(), r.PathValue("id"), req.Qty, req.Reason, req.ActorID)
	h.release(r, err)
	h.respondItem(w, item, err)
}

func (h *HTTPHandler) SkipPick(w http.ResponseWriter, r *http.Request) {
	var req PickRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.engine.Allocation.SkipPick(r.Context(), r.PathValue("id"), req.Reason, req.ActorID)
	h.respondItem(w, item, err)
}

func (h *HTTPHandler) respondItem(w http.ResponseWriter, item *domain.PickListItem, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickItemView(*item))
}

// claim rejects a request whose Idempotency-Key was already used.
func (h *HTTPHandler) claim(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.guard == nil {
		return true
	}
	ok, err := h.guard.Claim(r.Context(), idempotencyKey(r, key))
	if err != nil {
		h.logf("idempotency claim %s failed: %v", key, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return false
	}
	if !ok {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "duplicate request"})
		return false
	}
	return true
}

// release frees the request's Idempotency-Key when the engine rejected it,
// so a corrected retry with the same key is processed.
func (h *HTTPHandler) release(r *http.Request, err error) {
	key := r.Header.Get("Idempotency-Key")
	if err == nil || key == "" || h.guard == nil {
		return
	}
	if rerr := h.guard.Release(r.Context(), idempotencyKey(r, key)); rerr != nil {
		h.logf("idempotency release %s failed: %v", key, rerr)
	}
}

func idempotencyKey(r *http.Request, key string) string {
	return r.URL.Path + ":" + key
}

// ── Putaway ──────────────────────────────────────────────────────────────────

type PutawayRequest struct {
	ClientID            string            `json:"client_id"`
	ProductID           string            `json:"product_id"`
	OrderID             string            `json:"order_id"`
	LocationID          string            `json:"location_id"`
	SourceSublocationID string            `json:"source_sublocation_id"`
	LotID               string            `json:"lot_id"`
	ContainerID         string            `json:"container_id"`
	Qty                 int               `json:"qty"`
	Priority            int               `json:"priority"`
	Metadata            map[string]string `json:"metadata"`
	Notes               string            `json:"notes"`
}

func (h *HTTPHandler) CreatePutaway(w http.ResponseWriter, r *http.Request) {
	var req PutawayRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Putaway.CreatePutawayTask(r.Context(), service.PutawaySpec{
		ClientID:            req.ClientID,
		ProductID:           req.ProductID,
		OrderID:             req.OrderID,
		LocationID:          req.LocationID,
		SourceSublocationID: req.SourceSublocationID,
		LotID:               req.LotID,
		ContainerID:         req.ContainerID,
		Qty:                 req.Qty,
		Priority:            req.Priority,
		Metadata:            req.Metadata,
		Notes:               req.Notes,
	})
	h.respond(w, http.StatusCreated, taskView(task), err)
}

type SuggestionResponse struct {
	SublocationID string `json:"sublocation_id,omitempty"`
	Reason        string `json:"reason"`
}

func (h *HTTPHandler) SuggestPutaway(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qty, err := strconv.Atoi(q.Get("qty"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "qty must be an integer"})
		return
	}
	sug, err := h.engine.Putaway.Suggest(r.Context(), q.Get("product_id"), q.Get("location_id"), qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionResponse{SublocationID: sug.SublocationID, Reason: sug.Reason})
}

type ConfirmPutawayRequest struct {
	SublocationID string `json:"sublocation_id"`
	Qty           int    `json:"qty"`
	ActorID       string `json:"actor_id"`
}

func (h *HTTPHandler) ConfirmPutaway(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPutawayRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.engine.Putaway.ConfirmPutaway(r.Context(), r.PathValue("id"), req.SublocationID, req.Qty, req.ActorID)
	h.respond(w, http.StatusOK, taskView(task), err)
}

// ── Inspection ───────────────────────────────────────────────────────────────

type CriterionView struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

func (h *HTTPHandler) InspectionCriteria(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.Tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	criteria := h.engine.Inspections.InspectionCriteria(r.Context(), task.ClientID)
	out := make([]CriterionView, len(criteria))
	for i, c := range criteria {
		out[i] = CriterionView{Code: c.Code, Label: c.Label, Required: c.Required}
	}
	writeJSON(w, http.StatusOK, out)
}

type AnswerRequest struct {
	Code   string `json:"code"`
	Passed bool   `json:"passed"`
	Value  string `json:"value"`
	Notes  string `json:"notes"`
}

type InspectionRequest struct {
	Answers     []AnswerRequest          `json:"answers"`
	Overall     domain.InspectionOutcome `json:"overall"`
	InspectorID string                   `json:"inspector_id"`
	Notes       string                   `json:"notes"`
}

type InspectionResponse struct {
	Task           *TaskView `json:"task"`
	Overall        string    `json:"overall"`
	Released       int       `json:"released"`
	PutawayTask    *TaskView `json:"putaway_task,omitempty"`
	DamageReportID string    `json:"damage_report_id,omitempty"`
}

func (h *HTTPHandler) SubmitInspection(w http.ResponseWriter, r *http.Request) {
	var req InspectionRequest
	if !decode(w, r, &req) {
		return
	}
	answers := make([]domain.CriterionAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = domain.CriterionAnswer{Code: a.Code, Passed: a.Passed, Value: a.Value, Notes: a.Notes}
	}
	report, err := h.engine.Inspections.Submit(r.Context(), r.PathValue("id"), service.InspectionSubmission{
		Answers:     answers,
		Overall:     req.Overall,
		InspectorID: req.InspectorID,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := InspectionResponse{
		Task:        taskView(report.Task),
		Overall:     string(report.Result.Overall),
		Released:    report.Released,
		PutawayTask: taskView(report.PutawayTask),
	}
	if report.Damage != nil {
		resp.DamageReportID = report.Damage.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Inspections.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	answers := make([]AnswerRequest, len(result.Answers))
	for i, a := range result.Answers {
		answers[i] = AnswerRequest{Code: a.Code, Passed: a.Passed, Value: a.Value, Notes: a.Notes}
	}
	writeJSON(w, http.StatusOK, InspectionRequest{
		Answers:     answers,
		Overall:     result.Overall,
		InspectorID: result.InspectorID,
		Notes:       result.Notes,
	})
}

// ── Cycle counts ─────────────────────────────────────────────────────────────

type CountLineRequest struct {
	ProductID     string `json:"product_id"`
	SublocationID string `json:"sublocation_id"`
	LotID         string `json:"lot_id"`
}

type CreateCountRequest struct {
	LocationID string             `json:"location_id"`
	Blind      bool               `json:"blind"`
	Notes      string             `json:"notes"`
	Lines      []CountLineRequest `json:"lines"`
	ActorID    string             `json:"actor_id"`
}

func (h *HTTPHandler) CreateCount(w http.ResponseWriter, r *http.Request) {
	var req CreateCountRequest
	if !decode(w, r, &req) {
		return
	}
	lines := make([]domain.CountLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.CountLine{ProductID: l.ProductID, SublocationID: l.SublocationID, LotID: l.LotID}
	}
	count, items, err := h.engine.Counts.CreateCount(r.Context(), domain.CountRequest{
		LocationID: req.LocationID,
		Blind:      req.Blind,
		Notes:      req.Notes,
		Lines:      lines,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, countView(count, items))
}

func (h *HTTPHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	count, items, err := h.engine.Counts.GetCount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countView(count, items))
}

func (h *HTTPHandler) StartCount(w http.ResponseWriter, r *http.Request) {
	h.countTransition(w, r, h.engine.Counts.StartCount)
}

func (h *HTTPHandler) SubmitCount(w http.ResponseWriter, r *http.Request) {
	h.countTransition(w, r, h.engine.Counts.SubmitCount)
}

func (h *HTTPHandler) RejectCount(w http.ResponseWriter, r *http.Request) {
	h.countTransition(w, r, h.engine.Counts.Reject)
}

func (h *HTTPHandler) CancelCount(w http.ResponseWriter, r *http.Request) {
	h.countTransition(w, r, h.engine.Counts.CancelCount)
}

func (h *HTTPHandler) countTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) (*domain.CycleCount, error)) {

	count, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countView(count, nil))
}

type ApproveRequest struct {
	ApproverID string `json:"approver_id"`
}

type ApprovalResponse struct {
	Count    CountView `json:"count"`
	Adjusted int       `json:"adjusted"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
}

func (h *HTTPHandler) ApproveCount(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.engine.Counts.Approve(r.Context(), r.PathValue("id"), req.ApproverID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResponse{
		Count:    countView(summary.Count, nil),
		Adjusted: summary.Adjusted,
		Failed:   summary.Failed,
		Skipped:  summary.Skipped,
	})
}

type RecordCountRequest struct {
	CountedQty int    `json:"counted_qty"`
	CounterID  string `json:"counter_id"`
}

func (h *HTTPHandler) RecordCount(w http.ResponseWriter, r *http.Request) {
	var req RecordCountRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.engine.Counts.RecordCount(r.Context(), r.PathValue("id"), req.CountedQty, req.CounterID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Counters see only what they entered until the count is submitted.
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          item.ID,
		"product_id":  item.ProductID,
		"counted_qty": item.CountedQty,
		"counted_by":  item.CountedBy,
		"counted_at":  item.CountedAt,
	})
}

// ── plumbing ─────────────────────────────────────────────────────────────────

// decode reads a JSON body; an empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	return false
}

func (h *HTTPHandler) respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, status, data)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logf("request failed: %v", err)
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientInventory):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *HTTPHandler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
