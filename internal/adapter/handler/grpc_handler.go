package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/core/service"
)

const taskServiceName = "wms.v1.TaskService"

// TaskServiceServer is the scanner-facing RPC surface. Messages are
// google.protobuf.Struct so handheld clients need no generated stubs.
type TaskServiceServer interface {
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordPick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordShortPick(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: taskServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetTask", TaskServiceServer.GetTask),
		unary("AssignTask", TaskServiceServer.AssignTask),
		unary("StartTask", TaskServiceServer.StartTask),
		unary("RecordPick", TaskServiceServer.RecordPick),
		unary("RecordShortPick", TaskServiceServer.RecordShortPick),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wms/v1/task_service.proto",
}

func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskServiceDesc, srv)
}

// FullMethod returns the invoke path of a TaskService method.
func FullMethod(name string) string {
	return "/" + taskServiceName + "/" + name
}

type structCall func(TaskServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(TaskServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

type GRPCHandler struct {
	engine *service.Engine
}

func NewGRPCHandler(engine *service.Engine) *GRPCHandler {
	return &GRPCHandler{engine: engine}
}

func (h *GRPCHandler) GetTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	task, err := h.engine.Tasks.Get(ctx, field(req, "task_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return taskStruct(task)
}

func (h *GRPCHandler) AssignTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	task, err := h.engine.Tasks.Assign(ctx, field(req, "task_id"), field(req, "assignee"))
	if err != nil {
		return nil, grpcError(err)
	}
	return taskStruct(task)
}

func (h *GRPCHandler) StartTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	task, err := h.engine.Tasks.Start(ctx, field(req, "task_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return taskStruct(task)
}

func (h *GRPCHandler) RecordPick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	item, err := h.engine.Allocation.RecordPick(ctx, field(req, "item_id"), intField(req, "qty"), field(req, "actor_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return pickItemStruct(item)
}

func (h *GRPCHandler) RecordShortPick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	item, err := h.engine.Allocation.RecordShortPick(ctx, field(req, "item_id"), intField(req, "qty"),
		field(req, "reason"), field(req, "actor_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return pickItemStruct(item)
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

func field(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func intField(s *structpb.Struct, key string) int {
	if v, ok := s.GetFields()[key]; ok {
		return int(v.GetNumberValue())
	}
	return 0
}

func timeField(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func taskStruct(t *domain.Task) (*structpb.Struct, error) {
	meta := make(map[string]any, len(t.Metadata))
	for k, v := range t.Metadata {
		meta[k] = v
	}
	s, err := structpb.NewStruct(map[string]any{
		"id":                         t.ID,
		"task_number":                t.TaskNumber,
		"type":                       string(t.Type),
		"status":                     string(t.Status),
		"priority":                   t.Priority,
		"product_id":                 t.ProductID,
		"source_location_id":         t.SourceLocationID,
		"destination_location_id":    t.DestinationLocationID,
		"destination_sublocation_id": t.DestinationSublocationID,
		"qty_requested":              t.QtyRequested,
		"qty_completed":              t.QtyCompleted,
		"assigned_to":                t.AssignedTo,
		"assigned_at":                timeField(t.AssignedAt),
		"started_at":                 timeField(t.StartedAt),
		"completed_at":               timeField(t.CompletedAt),
		"metadata":                   meta,
		"version":                    t.Version,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode task: %v", err))
	}
	return s, nil
}

func pickItemStruct(p *domain.PickListItem) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":             p.ID,
		"task_id":        p.TaskID,
		"product_id":     p.ProductID,
		"lot_id":         p.LotID,
		"sublocation_id": p.SublocationID,
		"sequence":       p.Sequence,
		"qty_allocated":  p.QtyAllocated,
		"qty_picked":     p.QtyPicked,
		"qty_short":      p.QtyShort,
		"status":         string(p.Status),
		"picked_at":      timeField(p.PickedAt),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode pick item: %v", err))
	}
	return s, nil
}
