package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/utils"
)

// DocumentsServiceName is the fully qualified gRPC service name.
const DocumentsServiceName = "docintake.v1.Documents"

// DocumentsServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct messages:
//
//	Process({file_name, content_base64, enrich}) -> {documents, outcomes}
//	List({limit, document_type})                 -> {documents}
type DocumentsServer interface {
	Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type documentsServer struct {
	uploader Uploader
	docs     repository.DocumentRepository
	enrich   bool
	logger   *slog.Logger
}

const maxListLimit = 10000

func NewDocumentsServer(u Uploader, docs repository.DocumentRepository, enrich bool, logger *slog.Logger) DocumentsServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentsServer{uploader: u, docs: docs, enrich: enrich, logger: logger}
}

func (s *documentsServer) Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	fields := req.GetFields()
	name := strings.TrimSpace(fields["file_name"].GetStringValue())
	v := common.NewValidator().
		Field("file_name", name, common.Required, common.BaseName, common.MaxLength(1024))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(fields["content_base64"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("content_base64 is not valid base64: %v", err)
	}
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("content_base64 is required")
	}
	opts := pipeline.Options{Enrich: s.enrich}
	if v, ok := fields["enrich"]; ok {
		opts.Enrich = s.enrich && v.GetBoolValue()
	}

	s.logger.Info("grpc.process", "req_id", reqID, "file_name", name, "bytes", len(data))
	outs := s.uploader.ProcessUpload(ctx, name, data, opts)
	if err := uploadFailure(name, outs); err != nil {
		return nil, common.ToGRPCStatus(err)
	}

	docs, err := utils.ToPBDocuments(documentsOf(outs))
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	outcomes := make([]any, len(outs))
	for i, o := range outs {
		outcomes[i] = outcomeMap(o)
	}
	resp, err := structpb.NewStruct(map[string]any{"documents": docs, "outcomes": outcomes})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return resp, nil
}

func (s *documentsServer) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	limit := int(fields["limit"].GetNumberValue())
	v := common.NewValidator().Field("limit", limit, common.IntRange(0, maxListLimit))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx, repository.ListFilter{
		Limit:        limit,
		DocumentType: fields["document_type"].GetStringValue(),
	})
	if err != nil {
		s.logger.Error("grpc.list.failed", "error", err)
		return nil, common.ToGRPCStatus(err)
	}
	out, err := utils.ToPBDocuments(docs)
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	resp, err := structpb.NewStruct(map[string]any{"documents": out})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return resp, nil
}

func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentsServer).Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DocumentsServiceName + "/Process"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentsServer).Process(ctx, req.(*structpb.Struct))
	})
}

func listHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentsServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DocumentsServiceName + "/List"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentsServer).List(ctx, req.(*structpb.Struct))
	})
}

// DocumentsServiceDesc describes docintake.v1.Documents for grpc.Server.RegisterService.
var DocumentsServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentsServiceName,
	HandlerType: (*DocumentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Process", Handler: processHandler},
		{MethodName: "List", Handler: listHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docintake/v1/documents.proto",
}

// NewGRPCServer registers the Documents service plus health and reflection.
func NewGRPCServer(docs DocumentsServer, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(logger)))
	srv.RegisterService(&DocumentsServiceDesc, docs)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(DocumentsServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(srv)
	return srv
}

func unaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, reqID := common.EnsureRequestID(ctx)
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("grpc.request.failed", "req_id", reqID, "method", info.FullMethod, "error", err)
		} else {
			logger.Debug("grpc.request", "req_id", reqID, "method", info.FullMethod)
		}
		return resp, err
	}
}

// NewDocumentsClient invokes the Documents service over conn.
func NewDocumentsClient(conn grpc.ClientConnInterface) DocumentsServer {
	return &documentsClient{cc: conn}
}

type documentsClient struct {
	cc grpc.ClientConnInterface
}

func (c *documentsClient) Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DocumentsServiceName+"/Process", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentsClient) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DocumentsServiceName+"/List", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
