package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i2y/papermcp/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/i2y/papermcp/internal/usecase"

// InvokeToolUseCase handles receiving a tool invocation request and executing it.
// Every call goes through the same pipeline regardless of transport:
// resolve the definition, apply schema defaults, validate the arguments,
// then run the handler under a deadline.
type InvokeToolUseCase struct {
	registry ToolRegistry
	timeout  time.Duration
	logger   *slog.Logger

	tracer      trace.Tracer
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
// timeout bounds a single handler execution; zero disables the deadline.
func NewInvokeToolUseCase(registry ToolRegistry, timeout time.Duration, logger *slog.Logger) *InvokeToolUseCase {
	meter := otel.Meter(instrumentationName)
	// Instrument creation only fails on invalid names; fall through with the
	// no-op instruments the API returns in that case.
	invocations, _ := meter.Int64Counter("tool.invocations",
		metric.WithDescription("Number of tool invocations, by tool name and outcome."))
	duration, _ := meter.Float64Histogram("tool.duration",
		metric.WithDescription("Tool handler execution time."),
		metric.WithUnit("s"))

	return &InvokeToolUseCase{
		registry:    registry,
		timeout:     timeout,
		logger:      logger.With("usecase", "InvokeTool"),
		tracer:      otel.Tracer(instrumentationName),
		invocations: invocations,
		duration:    duration,
	}
}

// Execute finds the tool, fills in schema defaults, validates the arguments,
// and runs the handler. The returned error always carries a domain error kind;
// the handler is never started when validation fails.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Info("Executing tool invocation")

	ctx, span := uc.tracer.Start(ctx, "tools/call",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
	defer span.End()

	start := time.Now()
	result, err := uc.execute(ctx, log, toolName, params)

	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
		span.RecordError(err)
	}
	attrs := metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("outcome", outcome),
	)
	uc.invocations.Add(ctx, 1, attrs)
	uc.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		return nil, err
	}
	log.Info("Tool invocation successful")
	return result, nil
}

func (uc *InvokeToolUseCase) execute(ctx context.Context, log *slog.Logger, toolName string, params map[string]interface{}) (interface{}, error) {
	// 1. Find the tool definition.
	def, err := uc.registry.Find(ctx, toolName)
	if err != nil {
		log.Warn("Tool definition not found", slog.Any("error", err))
		return nil, err
	}

	// 2. Fill in declared defaults for omitted arguments.
	args := domain.ApplyDefaults(def.InputSchema, params)

	// 3. Validate arguments against the input schema. A rejected call never
	// reaches the handler.
	if err := uc.registry.ValidateArguments(toolName, args); err != nil {
		log.Warn("Invalid input parameters", slog.Any("error", err))
		return nil, err
	}

	// 4. Run the handler under the configured deadline.
	execCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	type invocation struct {
		value interface{}
		err   error
	}
	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: domain.HandlerError(fmt.Errorf("%v", r), "tool %q panicked", toolName)}
			}
		}()
		value, err := def.Handler(execCtx, args)
		done <- invocation{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Error("Tool handler failed", slog.Any("error", res.err))
			var domainErr *domain.Error
			if errors.As(res.err, &domainErr) {
				return nil, res.err
			}
			return nil, domain.HandlerError(res.err, "tool %q failed", toolName)
		}
		return res.value, nil

	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			log.Error("Tool handler timed out", slog.Duration("timeout", uc.timeout))
			return nil, domain.TimeoutError("tool %q did not complete within %s", toolName, uc.timeout)
		}
		log.Warn("Tool invocation canceled", slog.Any("error", execCtx.Err()))
		return nil, domain.HandlerError(execCtx.Err(), "tool %q invocation aborted", toolName)
	}
}
