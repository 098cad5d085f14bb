package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "polyglot.v1.TranslationService"

// Messages travel as google.protobuf.Struct values carrying the JSON form of
// the request and response types in messages.go.

// TranslationServer is the set of methods served over gRPC.
type TranslationServer interface {
	Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error)
	TranslateBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
	DetectLanguage(ctx context.Context, req *DetectRequest) (*DetectResponse, error)
	SubmitDocument(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)
	GetJob(ctx context.Context, req *JobRequest) (*JobSnapshot, error)
	ProcessTask(ctx context.Context, req *TaskRequest) (*TaskResult, error)
	CreateSession(ctx context.Context) (string, error)
	History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error)
	ClearHistory(ctx context.Context, req *HistoryRequest) error
	CheckReady(ctx context.Context) *ReadyResponse
}

var _ TranslationServer = (*TranslationService)(nil)

type unaryMethod func(s *TranslationService, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes the TranslationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranslationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Translate", handle((*TranslationService).Translate)),
		unary("TranslateBatch", handle((*TranslationService).TranslateBatch)),
		unary("DetectLanguage", handle((*TranslationService).DetectLanguage)),
		unary("SubmitDocument", handle((*TranslationService).SubmitDocument)),
		unary("GetJob", handle((*TranslationService).GetJob)),
		unary("ProcessTask", handle((*TranslationService).ProcessTask)),
		unary("CreateSession", handle(func(s *TranslationService, ctx context.Context, _ *struct{}) (*HistoryResponse, error) {
			id, err := s.CreateSession(ctx)
			return &HistoryResponse{SessionID: id}, err
		})),
		unary("History", handle((*TranslationService).History)),
		unary("ClearHistory", handle(func(s *TranslationService, ctx context.Context, req *HistoryRequest) (*struct{}, error) {
			return &struct{}{}, s.ClearHistory(ctx, req)
		})),
		unary("CheckReady", handle(func(s *TranslationService, ctx context.Context, _ *struct{}) (*ReadyResponse, error) {
			return s.CheckReady(ctx), nil
		})),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "polyglot/v1/translation",
}

// RegisterGRPC registers s on a gRPC server.
func RegisterGRPC(registrar grpc.ServiceRegistrar, s *TranslationService) {
	registrar.RegisterService(&ServiceDesc, s)
}

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*TranslationService)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// handle adapts a typed service method to the Struct wire form.
func handle[Req, Resp any](method func(*TranslationService, context.Context, *Req) (*Resp, error)) unaryMethod {
	return func(s *TranslationService, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		req := new(Req)
		if err := decodeStruct(in, req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
		}
		resp, err := method(s, ctx, req)
		if err != nil {
			s.logger.WithError(err).Debug("[gRPC] request rejected")
			return nil, toStatus(err)
		}
		out, err := encodeStruct(resp)
		if err != nil {
			s.logger.WithError(err).Error("[gRPC] failed to encode response")
			return nil, status.Errorf(codes.Internal, "encode response: %v", err)
		}
		return out, nil
	}
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrTranslationFailed), errors.Is(err, translate.ErrProviderUnavailable),
		errors.Is(err, translate.ErrProviderRequestFailed), errors.Is(err, translate.ErrEmptyResult):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Client calls a remote TranslationService.
type Client struct {
	cc     grpc.ClientConnInterface
	logger *logrus.Logger
}

// NewClient creates a client over an established connection.
func NewClient(cc grpc.ClientConnInterface, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{cc: cc, logger: logger}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encodeStruct(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if err := decodeStruct(out, resp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	c.logger.WithField("method", method).Debug("[gRPC] call completed")
	return nil
}

// Translate translates one text.
func (c *Client) Translate(ctx context.Context, req *TranslateRequest, opts ...grpc.CallOption) (*TranslateResponse, error) {
	resp := new(TranslateResponse)
	return resp, c.invoke(ctx, "Translate", req, resp, opts...)
}

// TranslateBatch translates several texts.
func (c *Client) TranslateBatch(ctx context.Context, req *BatchRequest, opts ...grpc.CallOption) (*BatchResponse, error) {
	resp := new(BatchResponse)
	return resp, c.invoke(ctx, "TranslateBatch", req, resp, opts...)
}

// DetectLanguage detects the language of a text.
func (c *Client) DetectLanguage(ctx context.Context, req *DetectRequest, opts ...grpc.CallOption) (*DetectResponse, error) {
	resp := new(DetectResponse)
	return resp, c.invoke(ctx, "DetectLanguage", req, resp, opts...)
}

// SubmitDocument queues a document job.
func (c *Client) SubmitDocument(ctx context.Context, req *DocumentRequest, opts ...grpc.CallOption) (*DocumentResponse, error) {
	resp := new(DocumentResponse)
	return resp, c.invoke(ctx, "SubmitDocument", req, resp, opts...)
}

// GetJob fetches a document job.
func (c *Client) GetJob(ctx context.Context, req *JobRequest, opts ...grpc.CallOption) (*JobSnapshot, error) {
	resp := new(JobSnapshot)
	return resp, c.invoke(ctx, "GetJob", req, resp, opts...)
}

// ProcessTask runs a translate-then-process task.
func (c *Client) ProcessTask(ctx context.Context, req *TaskRequest, opts ...grpc.CallOption) (*TaskResult, error) {
	resp := new(TaskResult)
	return resp, c.invoke(ctx, "ProcessTask", req, resp, opts...)
}

// History fetches a session's conversation history.
func (c *Client) History(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	resp := new(HistoryResponse)
	return resp, c.invoke(ctx, "History", req, resp, opts...)
}

// CreateSession starts a conversation session and returns its id.
func (c *Client) CreateSession(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	resp := new(HistoryResponse)
	if err := c.invoke(ctx, "CreateSession", struct{}{}, resp, opts...); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// ClearHistory empties a session's conversation history.
func (c *Client) ClearHistory(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "ClearHistory", req, new(struct{}), opts...)
}

// CheckReady reports backend health.
func (c *Client) CheckReady(ctx context.Context, opts ...grpc.CallOption) (*ReadyResponse, error) {
	resp := new(ReadyResponse)
	return resp, c.invoke(ctx, "CheckReady", struct{}{}, resp, opts...)
}
