package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator endpoints.
type Handler struct {
	store   *Store
	maxKeys int
}

// NewHandler returns a Handler backed by store. Requests carrying more
// than maxKeys keys are rejected; zero means no limit.
func NewHandler(store *Store, maxKeys int) *Handler {
	return &Handler{store: store, maxKeys: maxKeys}
}

// ---------------------------------------------------------------------------
// Binary operations
// ---------------------------------------------------------------------------

// Add handles POST /calculator/add
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, Add)
}

// Subtract handles POST /calculator/subtract
func (h *Handler) Subtract(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, Subtract)
}

// Multiply handles POST /calculator/multiply
func (h *Handler) Multiply(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, Multiply)
}

// Divide handles POST /calculator/divide
func (h *Handler) Divide(w http.ResponseWriter, r *http.Request) {
	h.handleBinaryOp(w, r, Divide)
}

// handleBinaryOp is the shared implementation for all binary calculator operations.
func (h *Handler) handleBinaryOp(w http.ResponseWriter, r *http.Request, op Operator) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)
	opName := op.Name()

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if math.IsNaN(req.A) || math.IsInf(req.A, 0) || math.IsNaN(req.B) || math.IsInf(req.B, 0) {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid numeric input", fmt.Errorf("a=%g b=%g", req.A, req.B), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.Float64("calculator.operand.a", req.A),
		attribute.Float64("calculator.operand.b", req.B),
	)

	start := time.Now()
	result, err := op.Apply(req.A, req.B)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsed, attrs)
	resultGauge.Record(ctx, result, attrs)

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.Float64("result", result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.Float64("calculator.result", result))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator operation completed",
		zap.String("operation", opName),
		zap.Float64("a", req.A),
		zap.Float64("b", req.B),
		zap.Float64("result", result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, CalcResponse{
		Operation: opName,
		A:         req.A,
		B:         req.B,
		Result:    result,
		Display:   FormatNumber(result),
	})
}

// ---------------------------------------------------------------------------
// Keypad sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions. It opens a calculator screen.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.create")
	defer span.End()

	sess, err := h.store.Create()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTooManySessions) {
			status = http.StatusServiceUnavailable
		}
		observability.RecordError(ctx, span, logger, errorCounter, "session.create", "cannot open session", err, status, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.session.id", sess.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session opened",
		zap.String("session_id", sess.ID),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, SessionResponse{
		ID:    sess.ID,
		State: TakeSnapshot(sess.State()),
	})
}

// GetSession handles GET /calculator/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r, "session.get")
	if !ok {
		return
	}

	handlers.WriteJSON(w, http.StatusOK, SessionResponse{
		ID:    sess.ID,
		State: TakeSnapshot(sess.State()),
	})
}

// DeleteSession handles DELETE /calculator/sessions/{sessionID}, the back action.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	id := chi.URLParam(r, "sessionID")

	if err := h.store.Delete(id); err != nil {
		handlers.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	logger.Info("calculator session closed",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	w.WriteHeader(http.StatusNoContent)
}

// PressKeys handles POST /calculator/sessions/{sessionID}/keys. Keys are
// applied in order to the session's engine.
func (h *Handler) PressKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)
	id := chi.URLParam(r, "sessionID")

	ctx, span := tracer.Start(ctx, "calculator.session.keys",
		trace.WithAttributes(
			attribute.String("calculator.session.id", id),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	tokens, ok := h.decodeKeys(ctx, span, logger, "session.keys", w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "session.keys", "session not found", err, http.StatusNotFound, w)
		return
	}

	start := time.Now()
	displays := sess.Press(tokens, func(t Token, ev Evaluation) {
		keyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", t.Kind.String())))
		if ev.Performed {
			recordEvaluation(ctx, span, logger, ev, id)
		}
	})
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	state := sess.State()
	opsHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", "keys")))

	span.SetAttributes(
		attribute.Int("calculator.keys.count", len(tokens)),
		attribute.String("calculator.display", state.Display()),
		attribute.String("calculator.phase", string(state.Phase())),
	)
	span.SetStatus(codes.Ok, "")

	logger.Debug("calculator keys applied",
		zap.String("session_id", id),
		zap.String("keys", FormatKeys(tokens)),
		zap.String("display", state.Display()),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, KeysResponse{
		ID:       id,
		Keys:     FormatKeys(tokens),
		Displays: displays,
		State:    TakeSnapshot(state),
	})
}

// ---------------------------------------------------------------------------
// Stateless key sequences
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate. It runs keys through a fresh
// engine and creates a child span for every key.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.evaluate",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	tokens, ok := h.decodeKeys(ctx, span, logger, "evaluate", w, r)
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int("calculator.keys.count", len(tokens)))

	engine := NewEngine()
	steps := make([]KeyResult, 0, len(tokens))

	for i, t := range tokens {
		before := engine.State()
		keyCtx, keySpan := tracer.Start(ctx, fmt.Sprintf("calculator.key.%d", i),
			trace.WithAttributes(
				attribute.Int("calculator.key.index", i),
				attribute.String("calculator.key", t.String()),
				attribute.String("calculator.phase.before", string(before.Phase())),
			),
		)

		ev := engine.Press(t)
		keyCounter.Add(keyCtx, 1, metric.WithAttributes(attribute.String("kind", t.Kind.String())))
		if ev.Performed {
			recordEvaluation(keyCtx, keySpan, logger, ev, "")
		}

		after := engine.State()
		keySpan.SetAttributes(
			attribute.String("calculator.phase.after", string(after.Phase())),
			attribute.String("calculator.display", after.Display()),
		)
		keySpan.SetStatus(codes.Ok, "")
		keySpan.End()

		steps = append(steps, KeyResult{
			Key:     t.String(),
			Display: after.Display(),
			Phase:   after.Phase(),
		})
	}

	state := engine.State()
	span.AddEvent("evaluate.complete", trace.WithAttributes(
		attribute.String("display", state.Display()),
		attribute.Int("total_keys", len(tokens)),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("key sequence evaluated",
		zap.String("keys", FormatKeys(tokens)),
		zap.String("display", state.Display()),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Keys:  FormatKeys(tokens),
		Steps: steps,
		State: TakeSnapshot(state),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request, opName string) (*Session, bool) {
	ctx := r.Context()
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		logger := observability.LoggerWithTrace(ctx)
		observability.RecordError(ctx, trace.SpanFromContext(ctx), logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return nil, false
	}
	return sess, true
}

func (h *Handler) decodeKeys(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, w http.ResponseWriter, r *http.Request) ([]Token, bool) {
	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return nil, false
	}

	tokens, err := ParseKeys(req.Keys)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid keys", err, http.StatusBadRequest, w)
		return nil, false
	}

	if h.maxKeys > 0 && len(tokens) > h.maxKeys {
		err := fmt.Errorf("%d keys exceeds limit of %d", len(tokens), h.maxKeys)
		observability.RecordError(ctx, span, logger, errorCounter, opName, "too many keys", err, http.StatusBadRequest, w)
		return nil, false
	}

	return tokens, true
}

// recordEvaluation reports an evaluation run by the engine. A failed
// evaluation shows "Error" to the user and is not a request failure.
func recordEvaluation(ctx context.Context, span trace.Span, logger *zap.Logger, ev Evaluation, sessionID string) {
	attrs := metric.WithAttributes(attribute.String("operation", ev.Op.Name()))
	fields := []zap.Field{
		zap.String("operation", ev.Op.Name()),
		zap.String("left", ev.Left),
		zap.String("right", ev.Right),
		zap.Bool("chained", ev.Chained),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	}
	if sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}

	if ev.Err != nil {
		errorCounter.Add(ctx, 1, attrs)
		span.RecordError(ev.Err)
		span.AddEvent("evaluation.failed", trace.WithAttributes(
			attribute.String("operation", ev.Op.Name()),
		))
		logger.Warn("calculator evaluation failed", append(fields, zap.Error(ev.Err))...)
		return
	}

	opsCounter.Add(ctx, 1, attrs)
	if result, err := strconv.ParseFloat(ev.Result, 64); err == nil {
		resultGauge.Record(ctx, result, attrs)
	}

	span.AddEvent("evaluation.complete", trace.WithAttributes(
		attribute.String("operation", ev.Op.Name()),
		attribute.String("result", ev.Result),
	))

	logger.Info("calculator evaluation completed", append(fields, zap.String("result", ev.Result))...)
}
