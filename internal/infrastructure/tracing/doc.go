/*
Package tracing provides lightweight request and connection tracing.

# Overview

Every HTTP request and every websocket connection gets a span. Spans carry a
trace id (propagated through the X-Trace-ID / X-Span-ID headers when a proxy
upstream already started one), a name, tags and a duration. Completed spans
are handed to a buffered collector that logs them through zap, so a slow
upgrade or a connection that tore down many sessions can be found in the log
by its trace id.

# Usage

	tracer := tracing.New("webterminator", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "ws.connection")
	span.SetTag("conn_id", connID.String())
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
