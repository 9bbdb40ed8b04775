package application

import "go.opentelemetry.io/otel"

const scopeName = "voicechat/internal/application"

var tracer = otel.Tracer(scopeName)
