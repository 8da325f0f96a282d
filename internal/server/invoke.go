package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/genai-devkit/internal/chain"
)

// StateMetadataKey is the config.metadata entry carrying the caller identity when the
// request does not present a client certificate.
const StateMetadataKey = "__genai_state"

var (
	errMissingInput = errors.New("input is required")
	errChainFailed  = errors.New("chain invocation failed")
	errMissingState = errors.New("caller identity required: present a client certificate or set config.metadata." + StateMetadataKey)
)

type invokeRequest struct {
	Input  json.RawMessage `json:"input"`
	Config struct {
		Metadata map[string]json.RawMessage `json:"metadata"`
	} `json:"config"`
}

type invokeResponse struct {
	Output   json.RawMessage `json:"output"`
	Metadata invokeMetadata  `json:"metadata"`
}

type invokeMetadata struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.Input) == 0 || string(req.Input) == "null" {
		writeError(w, http.StatusBadRequest, errMissingInput)
		return
	}

	state, err := s.resolveState(r, req.Config.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runID := uuid.New().String()
	log := zerolog.Ctx(r.Context()).With().
		Str("run_id", runID).
		Str("chain", s.cfg.ChainName).
		Str("user", state.ClientUserID).
		Str("tenant", state.ClientTenant).
		Logger()

	ctx, span := s.tracer.Start(log.WithContext(r.Context()), "chain.invoke",
		trace.WithAttributes(
			attribute.String("chain.name", s.cfg.ChainName),
			attribute.String("chain.run_id", runID),
			attribute.String("genai.auth_type", state.ClientAuthType),
			attribute.String("genai.tenant", state.ClientTenant),
		))
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("chain", s.cfg.ChainName))
	s.metrics.ChainInvocationsTotal.Add(ctx, 1, attrs)
	s.metrics.ActiveInvocations.Add(ctx, 1, attrs)
	defer s.metrics.ActiveInvocations.Add(ctx, -1, attrs)

	started := time.Now()
	resp, err := s.chain.Invoke(ctx, chain.Request{Input: req.Input, State: state})
	s.metrics.ChainInvocationDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	if err != nil {
		s.metrics.ChainInvocationErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("Chain invocation failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errChainFailed.Error(), RunID: runID})
		return
	}

	log.Debug().Dur("duration", time.Since(started)).Msg("Chain invocation completed")

	writeJSON(w, http.StatusOK, invokeResponse{
		Output:   resp.Output,
		Metadata: invokeMetadata{RunID: runID},
	})
}

// resolveState prefers a verified client certificate and falls back to the metadata
// supplied by the caller, which is how the GenAI API is bypassed locally.
func (s *Server) resolveState(r *http.Request, metadata map[string]json.RawMessage) (chain.State, error) {
	if r.TLS != nil && len(r.TLS.VerifiedChains) > 0 && len(r.TLS.VerifiedChains[0]) > 0 {
		cert := r.TLS.VerifiedChains[0][0]
		if s.service.Tenant == "" {
			return chain.State{}, errors.New("GENAI_API_SERVICE_NAME must be set to serve mTLS callers")
		}
		return chain.State{
			ClientAuthType: chain.AuthTypeMTLS,
			ClientUserID:   cert.Subject.CommonName,
			ClientTenant:   s.service.Tenant,
		}, nil
	}

	raw, ok := metadata[StateMetadataKey]
	if !ok {
		return chain.State{}, errMissingState
	}

	var state chain.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return chain.State{}, fmt.Errorf("invalid %s: %w", StateMetadataKey, err)
	}
	if !state.Valid() {
		return chain.State{}, fmt.Errorf("invalid %s: client_user_id and client_tenant are required", StateMetadataKey)
	}

	return state, nil
}
