package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Separate sink for raw LLM traffic so prompts and completions can be audited
// without flooding the main log.

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

func logLLM(kind, agent string, sections map[string]string, order []string) {
	llmMu.Lock()
	sink := llmLog
	llmMu.Unlock()
	if sink == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM][")
	b.WriteString(kind)
	b.WriteString("]")
	if agent != "" {
		b.WriteString("[")
		b.WriteString(agent)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, title := range order {
		body := sections[title]
		if strings.TrimSpace(body) == "" {
			continue
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	sink.Print(b.String())
}

func LogLLMRequest(agent, systemPrompt, userPrompt, payload string) {
	sections := map[string]string{"SYSTEM": systemPrompt, "USER": userPrompt}
	order := []string{"SYSTEM", "USER"}
	if llmDumpPayload && strings.TrimSpace(payload) != "" {
		sections["PAYLOAD"] = payload
		order = append(order, "PAYLOAD")
	}
	logLLM("request", agent, sections, order)
}

func LogLLMResponse(agent, raw string) {
	logLLM("response", agent, map[string]string{"RAW": raw}, []string{"RAW"})
}
