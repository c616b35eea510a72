// Package scorer provides a rate-limited Go client for the Perspective comment
// analyzer, a remote service that scores text for toxicity and related abuse
// attributes.
//
// A Client holds an API key, a queries-per-second ceiling and the set of
// attributes to request. Every call to Score waits out the rate limit, sends
// one AnalyzeComment request and returns one score per configured attribute.
// Transport failures never reach the caller as errors: the result comes back
// with every attribute marked unavailable. A response that cannot be decoded
// or is missing a requested score is reported as ErrMalformedResponse.
//
// Features:
//   - Fixed pre-call pacing of 1.001/qps seconds, or a shared token bucket
//     for clients used from several goroutines
//   - Validated, copy-on-write attribute configuration
//   - Circuit breaker around the transport
//   - Prometheus metrics and OpenTelemetry spans per call
//   - Alternative backend served by the OpenAI moderation endpoint, selected
//     with Config.Backend
//
// Basic usage:
//
//	cfg := scorer.NewDefaultConfig(os.Getenv("PERSPECTIVE_API_KEY"))
//	c, err := scorer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Score(ctx, "you are a wonderful person")
//	if v, ok := res.Value(scorer.Toxicity); ok {
//	    fmt.Println(v)
//	}
package scorer
