package gateway

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/citybrain/gateway/internal/gateway"

// LocalExecutor runs spatial store queries.
type LocalExecutor interface {
	Execute(ctx context.Context, target LocalTarget, req *Request) (any, error)
}

// RemoteProxy forwards requests to the inference service.
type RemoteProxy interface {
	Forward(ctx context.Context, target RemoteTarget, req *Request) (json.RawMessage, error)
}

// Recorder receives per-call backend measurements.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// ServiceConfig holds dependencies for the Service.
type ServiceConfig struct {
	Selector *Selector
	Local    LocalExecutor
	Remote   RemoteProxy
	// Recorder is optional.
	Recorder Recorder
	Logger   zerolog.Logger
}

// Service runs the normalize, select and execute pipeline for an operation.
type Service struct {
	selector *Selector
	local    LocalExecutor
	remote   RemoteProxy
	recorder Recorder
	logger   zerolog.Logger
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		selector: cfg.Selector,
		local:    cfg.Local,
		remote:   cfg.Remote,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// Selector returns the operation table the service dispatches from.
func (s *Service) Selector() *Selector {
	return s.selector
}

// Handle serves one invocation of op. The returned error is always a *Error
// tagged with op.
func (s *Service) Handle(ctx context.Context, op Operation, in Input) (any, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway."+string(op),
		trace.WithAttributes(attribute.String("gateway.operation", string(op))),
	)
	defer span.End()

	desc, ok := s.selector.Descriptor(op)
	if !ok {
		return nil, fail(span, NewConfigurationError(op, "no backend target registered"))
	}
	span.SetAttributes(attribute.String("gateway.backend", desc.Target.Kind.String()))

	req, err := Normalize(desc, in)
	if err != nil {
		return nil, fail(span, tag(op, err))
	}

	start := time.Now()
	body, err := s.dispatch(ctx, desc.Target, req)
	if s.recorder != nil {
		s.recorder.RecordRequest(desc.Target.Kind.String(), string(op), time.Since(start), err)
	}
	if err != nil {
		return nil, fail(span, tag(op, err))
	}

	s.logger.Debug().
		Str("operation", string(op)).
		Str("backend", desc.Target.Kind.String()).
		Dur("duration", time.Since(start)).
		Msg("operation served")

	return body, nil
}

func (s *Service) dispatch(ctx context.Context, target Target, req *Request) (any, error) {
	switch target.Kind {
	case BackendLocal:
		if s.local == nil {
			return nil, NewConfigurationError(req.Operation, "no spatial executor configured")
		}
		return s.local.Execute(ctx, *target.Local, req)
	case BackendRemote:
		if s.remote == nil {
			return nil, NewConfigurationError(req.Operation, "no inference proxy configured")
		}
		body, err := s.remote.Forward(ctx, *target.Remote, req)
		if err != nil {
			return nil, err
		}
		return body, nil
	default:
		return nil, NewConfigurationError(req.Operation, "no backend target registered")
	}
}

// fail marks span as failed with the error kind and returns err.
func fail(span trace.Span, err error) error {
	gwErr := AsError(err)
	span.SetAttributes(attribute.String("gateway.error_kind", string(gwErr.Kind)))
	if gwErr.Kind != KindValidation {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(gwErr.Kind))
	}
	return err
}

// tag copies err into a *Error carrying op, classifying unknown errors as
// backend failures.
func tag(op Operation, err error) error {
	gwErr := *AsError(err)
	gwErr.Op = op
	return &gwErr
}
