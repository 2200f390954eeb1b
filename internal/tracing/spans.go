package tracing

// Span attribute keys.
const (
	AttrOperation  = "regform.operation"
	AttrUsername   = "regform.username"
	AttrCountry    = "regform.country"
	AttrAvailable  = "regform.available"
	AttrGeneration = "regform.check.generation"
	AttrRequestID  = "http.request_id"
	AttrHTTPMethod = "http.method"
	AttrHTTPURL    = "http.url"
	AttrHTTPStatus = "http.status_code"
	AttrCount      = "regform.result.count"
)

// Span name prefixes.
const (
	SpanPrefixAPI     = "regform.apiclient."
	SpanPrefixSession = "regform.session."
	SpanPrefixServer  = "regform.server."
)
