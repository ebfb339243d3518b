package services

import (
	"fmt"
	"strings"

	"github.com/converso-ai/converso-engine/pkg/models"
)

// intentInstructions is the shared instruction table keyed by intent type.
// Both the fused classifier prompt and the response generator draw from it so
// the two paths produce replies with the same voice.
var intentInstructions = map[models.IntentType]string{
	models.IntentGreeting: "Cumprimente o usuário de forma calorosa, adequada ao período do dia, " +
		"e mencione brevemente como você pode ajudar (agendamentos, dúvidas, informações).",
	models.IntentThanks: "Agradeça de volta de forma breve e calorosa. " +
		"Coloque-se à disposição para ajudar em mais alguma coisa.",
	models.IntentFarewell: "Despeça-se cordialmente, desejando um bom dia/tarde/noite conforme o período. " +
		"Deixe claro que o usuário pode voltar quando quiser.",
	models.IntentMenu: "Liste de forma clara e curta o que você pode fazer: agendar e remarcar consultas, " +
		"tirar dúvidas sobre a clínica e dar informações gerais. Use este intent apenas para pedidos " +
		"explícitos de ajuda.",
	models.IntentOffTopic: "Responda de forma simpática e muito breve, e redirecione gentilmente a conversa " +
		"para como você pode ajudar.",
	models.IntentEndService: "Confirme o encerramento do atendimento de forma cordial e agradeça o contato.",
}

// buildContextBlock renders the render context for prompt composition.
func buildContextBlock(rctx models.ResponseContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Seu nome é %s e você é o assistente virtual de %s.\n", rctx.BotName, rctx.ClientName)
	if rctx.PatientName != "" {
		fmt.Fprintf(&sb, "O usuário se chama %s; use o nome dele com moderação.\n", rctx.PatientName)
	}
	fmt.Fprintf(&sb, "Período do dia: %s (sauda-se com \"%s\").\n", rctx.TimeOfDay, rctx.TimeOfDay.Greeting())
	return sb.String()
}
