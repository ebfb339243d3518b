package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/services"
)

type fakeTransitionService struct {
	phrase  string
	lastReq services.TransitionRequest
	calls   int
}

func (f *fakeTransitionService) GenerateTransitionMessage(ctx context.Context, req services.TransitionRequest) string {
	f.calls++
	f.lastReq = req
	return f.phrase
}

func newTransitionMux(svc *fakeTransitionService) *http.ServeMux {
	handler := NewTransitionHandler(svc, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, passthroughMiddleware)
	return mux
}

func transitionPath() string {
	return fmt.Sprintf("/api/workspaces/%s/agents/%s/transition", uuid.New(), uuid.New())
}

func TestTransitionHandlerGenerate(t *testing.T) {
	svc := &fakeTransitionService{phrase: "Entendi, vamos falar disso então."}
	mux := newTransitionMux(svc)

	rec := postJSON(t, mux, transitionPath(), TransitionRequest{
		PreviousSkill:    "agendamento",
		NewUserMessage:   "na verdade quero cancelar",
		HadCollectedData: true,
		SwitchReason:     "user changed topic",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data TransitionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Entendi, vamos falar disso então.", envelope.Data.Transition)
	assert.Empty(t, envelope.Data.Content)

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "agendamento", svc.lastReq.PreviousSkill)
	assert.Equal(t, "na verdade quero cancelar", svc.lastReq.NewUserMessage)
	assert.True(t, svc.lastReq.HadCollectedData)
}

func TestTransitionHandlerPrependsContent(t *testing.T) {
	svc := &fakeTransitionService{phrase: "Claro, mudando de assunto."}
	mux := newTransitionMux(svc)

	rec := postJSON(t, mux, transitionPath(), TransitionRequest{
		PreviousSkill:  "agendamento",
		NewUserMessage: "quais convênios vocês aceitam?",
		Content:        "Aceitamos os principais convênios.",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data TransitionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t,
		services.PrependTransitionMessage("Claro, mudando de assunto.", "Aceitamos os principais convênios."),
		envelope.Data.Content)
	assert.Contains(t, envelope.Data.Content, "Aceitamos os principais convênios.")
}

func TestTransitionHandlerValidation(t *testing.T) {
	svc := &fakeTransitionService{phrase: "ok"}
	mux := newTransitionMux(svc)

	tests := []struct {
		name string
		req  TransitionRequest
	}{
		{"missing previous skill", TransitionRequest{NewUserMessage: "oi"}},
		{"missing user message", TransitionRequest{PreviousSkill: "agendamento"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, mux, transitionPath(), tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, svc.calls)
}
