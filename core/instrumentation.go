package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const scopeName = "github.com/kurtvoice/kurt-core/core"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	identityAttr = attribute.Key("kurt.identity")
	scoreAttr    = attribute.Key("kurt.identity.score")
)
