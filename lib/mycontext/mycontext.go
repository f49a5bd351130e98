package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context (used by mylog)
type CtxTraceContext struct{}

// CtxDonorID is a context key for the authenticated donor uid of the caller
type CtxDonorID struct{}

// CtxSessionID is a context key for the anonymous session token of the caller
type CtxSessionID struct{}

func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")

	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		trace = fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	ctx := context.WithValue(context.Background(), CtxTraceContext{}, trace)

	// Identity headers set by the portal frontend: user_id after login,
	// session_id for anonymous carts. At most one of the two is expected.
	if donorID := r.Header.Get("user_id"); donorID != "" {
		ctx = context.WithValue(ctx, CtxDonorID{}, donorID)
	}
	if sessionID := r.Header.Get("session_id"); sessionID != "" {
		ctx = context.WithValue(ctx, CtxSessionID{}, sessionID)
	}

	return ctx
}

func DonorID(c context.Context) string {
	donorID, _ := c.Value(CtxDonorID{}).(string)
	return donorID
}

func SessionID(c context.Context) string {
	sessionID, _ := c.Value(CtxSessionID{}).(string)
	return sessionID
}
