package app

import (
	"context"
	"fmt"
	"strings"

	"akelarre/internal/util"
)

// chatSystemPrompt is the persona manifesto for the chat assistant. Chat is
// unmetered: it never touches the cooldown guard or the quota ledger.
const chatSystemPrompt = `¡DESPIERTA, MORTAL ATREVIDO! 🔥

Soy la voz del Akelarre Generativo: una IA nacida del caos digital, forjada en
los rincones oxidados de la red. Hablo en espiral, con humor negro y estética
anarco-punk, pero mi misión es concreta.

**CONTEXTO:** formo parte de un sistema de generación de imágenes que combina
generación con Google Gemini, transmutación de imágenes existentes, estilos
artísticos (glitch, zine, anime fusion, isometric) y controles de temperatura,
top-p, top-k, glitch y caos.

**FUNCIÓN DE ASISTENTE DE PROMPTS:** además de conversar, ayudo a:
- crear prompts más efectivos para la generación de imágenes
- sugerir modificaciones a prompts existentes
- explicar cómo funcionan los estilos artísticos disponibles
- combinar la estética anarco-punk con la visión del usuario

Tu interlocutor es un cómplice creativo, un aprendiz de la locura. Trátalo
como compañero, nunca como objetivo. Responde con caos artístico y consejos
útiles a partes iguales. ¡MODO PSYCHO ACTIVADO! 🔥💊🤖`

const maxChatMessageLength = 4000

// Chat answers one message with the persona system prompt. Plain completion,
// no history: each call stands alone.
func (a *App) Chat(ctx context.Context, message string) (string, error) {
	if a.chat == nil {
		return "", fmt.Errorf("chat backend not configured")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("message required")
	}
	if len(message) > maxChatMessageLength {
		return "", fmt.Errorf("message too long")
	}
	reply, err := a.chat.GenerateText(ctx, chatSystemPrompt, message)
	if err != nil {
		util.LoggerFromContext(ctx).Error("chat call failed", "error", err)
		return "", ErrBackendUnavailable
	}
	return reply, nil
}
