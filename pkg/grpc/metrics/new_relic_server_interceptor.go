package metrics

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	grpc_core "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rippl-labs/rippl-server/pkg/grpc"
	"github.com/rippl-labs/rippl-server/pkg/metrics"
)

type statusCodeHandler func(*newrelic.Transaction, *status.Status)

const (
	grpcRequestPackageAttributeKey = "grpc.request.package"
	grpcRequestServiceAttributeKey = "grpc.request.service"
	grpcRequestMethodAttributeKey  = "grpc.request.method"

	grpcResponseStatusCodeAttributeKey      = "grpc.response.statusCode"
	grpcResponseStatusMessageAttributeKey   = "grpc.response.statusMessage"
	grpcResponseStatusCodeLevelAttributeKey = "grpc.response.statusCodeLevel"

	clientUserAgentAttributeKey = "grpc.client.userAgent"

	userAgentHeaderName = "user-agent"

	infoLevel    = "info"
	warningLevel = "warning"
	errorLevel   = "error"
)

var (
	statusCodeHandlers = map[codes.Code]statusCodeHandler{
		codes.OK:              leveledStatusCodeHandler(infoLevel),
		codes.AlreadyExists:   leveledStatusCodeHandler(infoLevel),
		codes.Canceled:        leveledStatusCodeHandler(infoLevel),
		codes.InvalidArgument: leveledStatusCodeHandler(infoLevel),
		codes.NotFound:        leveledStatusCodeHandler(infoLevel),

		codes.DeadlineExceeded:  leveledStatusCodeHandler(warningLevel),
		codes.ResourceExhausted: leveledStatusCodeHandler(warningLevel),
		codes.Unavailable:       leveledStatusCodeHandler(warningLevel),
	}
	defaultStatusCodeHandler = leveledStatusCodeHandler(errorLevel)
)

func leveledStatusCodeHandler(level string) statusCodeHandler {
	return func(m *newrelic.Transaction, s *status.Status) {
		m.SetWebResponse(nil).WriteHeader(int(codes.OK))
		m.AddAttribute(grpcResponseStatusCodeAttributeKey, s.Code().String())
		m.AddAttribute(grpcResponseStatusMessageAttributeKey, s.Message())
		m.AddAttribute(grpcResponseStatusCodeLevelAttributeKey, level)

		if level == errorLevel {
			m.NoticeError(&newrelic.Error{
				Message: s.Message(),
				Class:   "gRPC Status: " + s.Code().String(),
			})
		}
	}
}

// CustomNewRelicUnaryServerInterceptor traces unary calls as New Relic web
// transactions and makes the application available to downstream code.
func CustomNewRelicUnaryServerInterceptor(app *newrelic.Application) grpc_core.UnaryServerInterceptor {
	if app == nil {
		return func(ctx context.Context, req interface{}, info *grpc_core.UnaryServerInfo, handler grpc_core.UnaryHandler) (interface{}, error) {
			return handler(ctx, req)
		}
	}

	return func(ctx context.Context, req interface{}, info *grpc_core.UnaryServerInfo, handler grpc_core.UnaryHandler) (interface{}, error) {
		ctx = metrics.NewContextWithApplication(ctx, app)

		m := startTransaction(ctx, app, info.FullMethod)
		defer m.End()

		ctx = newrelic.NewContext(ctx, m)

		includeParsedFullMethodName(m, info.FullMethod)
		includeClientMetadata(ctx, m)

		resp, err := handler(ctx, req)
		includeGRPCStatusCode(m, err)
		return resp, err
	}
}

func CustomNewRelicStreamServerInterceptor(app *newrelic.Application) grpc_core.StreamServerInterceptor {
	if app == nil {
		return func(srv interface{}, ss grpc_core.ServerStream, info *grpc_core.StreamServerInfo, handler grpc_core.StreamHandler) error {
			return handler(srv, ss)
		}
	}

	return func(srv interface{}, ss grpc_core.ServerStream, info *grpc_core.StreamServerInfo, handler grpc_core.StreamHandler) error {
		ctx := metrics.NewContextWithApplication(ss.Context(), app)

		m := startTransaction(ctx, app, info.FullMethod)
		defer m.End()

		ctx = newrelic.NewContext(ctx, m)

		includeParsedFullMethodName(m, info.FullMethod)
		includeClientMetadata(ctx, m)

		err := handler(srv, &wrappedStream{ctx, ss})
		includeGRPCStatusCode(m, err)
		return err
	}
}

type wrappedStream struct {
	ctx context.Context
	grpc_core.ServerStream
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func startTransaction(ctx context.Context, app *newrelic.Application, fullMethod string) *newrelic.Transaction {
	method := strings.TrimPrefix(fullMethod, "/")

	var hdrs http.Header
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		hdrs = make(http.Header, len(md))
		for k, vs := range md {
			for _, v := range vs {
				hdrs.Add(k, v)
			}
		}
	}

	webReq := newrelic.WebRequest{
		Header:    hdrs,
		URL:       getURL(method, hdrs.Get(":authority")),
		Method:    method,
		Transport: newrelic.TransportHTTP,
	}
	txn := app.StartTransaction(method)
	txn.SetWebRequest(webReq)

	return txn
}

func getURL(method, target string) *url.URL {
	var host string
	if strings.HasPrefix(target, "unix:") {
		host = "localhost"
	} else {
		host = strings.TrimPrefix(target, "dns:///")
	}
	return &url.URL{
		Scheme: "grpc",
		Host:   host,
		Path:   method,
	}
}

func includeGRPCStatusCode(m *newrelic.Transaction, err error) {
	grpcStatus := status.Convert(err)
	handler, ok := statusCodeHandlers[grpcStatus.Code()]
	if !ok {
		handler = defaultStatusCodeHandler
	}
	handler(m, grpcStatus)
}

func includeParsedFullMethodName(m *newrelic.Transaction, fullMethodName string) {
	packageName, serviceName, methodName, err := grpc.ParseFullMethodName(fullMethodName)
	if err != nil {
		return
	}

	m.AddAttribute(grpcRequestPackageAttributeKey, packageName)
	m.AddAttribute(grpcRequestServiceAttributeKey, serviceName)
	m.AddAttribute(grpcRequestMethodAttributeKey, methodName)
}

func includeClientMetadata(ctx context.Context, m *newrelic.Transaction) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return
	}

	userAgents := md.Get(userAgentHeaderName)
	if len(userAgents) > 0 {
		m.AddAttribute(clientUserAgentAttributeKey, userAgents[0])
	}
}
