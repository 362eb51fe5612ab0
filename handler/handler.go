// Package handler adapts API Gateway proxy events to the chat usecase.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"storefront-agent/internal/usecase"
)

// DefaultUserID is the sentinel used when a request omits user_id.
const DefaultUserID = "default_user"

const correlationHeader = "X-Correlation-Id"

// ChatUseCase is the routing operation consumed by the handler.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves POST /chat.
type Handler struct {
	uc ChatUseCase
}

func NewHandler(uc ChatUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: usecase must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle decodes the inbound event, routes the message, and encodes
// the reply. A body that is not valid JSON is a 400; a body missing
// the message field is treated as an empty message and still routed,
// which lands in the generative fallback.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)

	var req chatRequest
	if body := event.Body; body != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errorReply(http.StatusBadRequest, usecase.ErrorInvalidInput, correlationID), nil
		}
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{Message: req.Message, UserID: req.UserID})
	if err != nil {
		return errorReply(statusForError(err), codeForError(err), correlationID), nil
	}

	return jsonReply(http.StatusOK, chatResponse{Reply: out.Reply}, correlationID), nil
}

func statusForError(err error) int {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeForError(err error) usecase.ErrorCode {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return usecase.ErrorInternal
	}
	return ucErr.Code
}

// resolveCorrelationID echoes the request correlation header when
// present (header names arrive in arbitrary case from API Gateway),
// otherwise mints a fresh ID.
func resolveCorrelationID(headers map[string]string) string {
	for name, value := range headers {
		if http.CanonicalHeaderKey(name) == correlationHeader && value != "" {
			return value
		}
	}
	return uuid.NewString()
}

func jsonReply(status int, payload any, correlationID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		// Payloads here are plain structs; this cannot fail in practice.
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func errorReply(status int, code usecase.ErrorCode, correlationID string) events.APIGatewayProxyResponse {
	return jsonReply(status, errorResponse{Error: string(code)}, correlationID)
}
