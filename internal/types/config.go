package types

// RunMode is the deployment mode of the worker
type RunMode string

const (
	// ModeLocal runs the API as a plain HTTP server
	ModeLocal RunMode = "local"
	// ModeAWSLambdaAPI runs the API behind an AWS Lambda API gateway proxy
	ModeAWSLambdaAPI RunMode = "aws_lambda_api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
)

const (
	HeaderRequestID = "X-Request-ID"
)
