// Package logging configures log/slog for lazyproxy and carries request
// scoped fields through a context.
//
// # Usage
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging)
//	...
//	ctx = logging.WithRequestID(ctx, id)
//	ctx = logging.WithService(ctx, "api")
//	logging.FromContext(ctx).Info("forwarding request")
//	// {"level":"INFO","msg":"forwarding request","request_id":"...","service":"api"}
//
// # Redaction
//
// Query strings are logged through RedactQuery, which masks the values of
// parameters that commonly carry credentials (token, password, api_key, ...).
package logging
