package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"storefront-agent/internal/usecase"
)

type stubUseCase struct {
	out usecase.ChatOutput
	err error
	in  usecase.ChatInput
}

func (s *stubUseCase) Chat(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "Your cart is empty."}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"show cart","user_id":"u1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.ChatInput{Message: "show cart", UserID: "u1"}, uc.in)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "Your cart is empty.", out.Reply)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_DefaultsUserID(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), makeEvent(`{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, DefaultUserID, uc.in.UserID)
}

func TestHandle_MissingMessageIsRoutedAsEmpty(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "generated"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"user_id":"u1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "", uc.in.Message)
	require.Equal(t, "u1", uc.in.UserID)
}

func TestHandle_EmptyBodyIsRoutedAsEmpty(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "generated"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, DefaultUserID, uc.in.UserID)
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "bad_request"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "llm_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "state_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hello"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(`{"message":"hello"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
