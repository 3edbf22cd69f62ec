package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonAuthExchange ReasonCode = "auth_exchange"
	ReasonAuthRejected ReasonCode = "auth_rejected"

	ReasonDuplicateSession ReasonCode = "duplicate_session"
	ReasonSessionNotFound  ReasonCode = "session_not_found"

	ReasonPlatformAnswer ReasonCode = "platform_answer"
	ReasonPlatformPlay   ReasonCode = "platform_play"
	ReasonPlatformHangup ReasonCode = "platform_hangup"

	ReasonTranslateStrategy  ReasonCode = "translate_strategy"
	ReasonTranslateTimeout   ReasonCode = "translate_timeout"
	ReasonTranslateModelLoad ReasonCode = "translate_model_load"
	ReasonTranslateRateLimit ReasonCode = "translate_rate_limit"

	ReasonSynthesisRender ReasonCode = "synthesis_render"
	ReasonSynthesisEmpty  ReasonCode = "synthesis_empty"

	ReasonSourceConnect ReasonCode = "source_connect"
	ReasonSourceClosed  ReasonCode = "source_closed"

	ReasonGatewayPayload ReasonCode = "gateway_payload"
	ReasonGatewaySecret  ReasonCode = "gateway_invalid_secret"
)
