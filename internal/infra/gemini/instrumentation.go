package gemini

import "go.opentelemetry.io/otel"

const scopeName = "voicechat/internal/infra/gemini"

var tracer = otel.Tracer(scopeName)
