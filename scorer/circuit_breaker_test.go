package scorer_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"

	"github.com/JohnPlummer/perspective-client/scorer"
)

var _ = Describe("CircuitBreaker", func() {
	var (
		cb    *scorer.CircuitBreakerTransport
		inner *mockTransport
		ctx   context.Context
		req   scorer.AnalyzeRequest
	)

	tripAfterThree := func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	BeforeEach(func() {
		ctx = context.Background()
		inner = &mockTransport{}
		req = scorer.BuildRequest("text", []scorer.Attribute{scorer.Toxicity}, scorer.RequestOptions{})

		cb = scorer.NewCircuitBreakerTransport(inner, &scorer.CircuitBreakerConfig{
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
			ReadyToTrip: tripAfterThree,
		})
	})

	failTimes := func(n int) {
		for i := 0; i < n; i++ {
			_, _ = cb.Analyze(ctx, req)
		}
	}

	Describe("Normal Operation", func() {
		It("should pass through successful requests", func() {
			inner.response = scoresResponse(map[scorer.Attribute]float64{scorer.Toxicity: 0.3})

			resp, err := cb.Analyze(ctx, req)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp).To(BeIdenticalTo(inner.response))
			Expect(cb.State()).To(Equal(gobreaker.StateClosed))
			Expect(cb.Counts().TotalSuccesses).To(Equal(uint32(1)))
		})

		It("should use defaults for a nil config", func() {
			cb = scorer.NewCircuitBreakerTransport(inner, nil)
			inner.err = &scorer.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}

			failTimes(4)
			Expect(cb.State()).To(Equal(gobreaker.StateClosed))
			failTimes(1)
			Expect(cb.State()).To(Equal(gobreaker.StateOpen))
		})
	})

	Describe("Error Handling", func() {
		Context("with errors the service is not at fault for", func() {
			It("should not trip on quota errors (429)", func() {
				inner.err = &scorer.APIError{StatusCode: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}

				failTimes(5)
				Expect(cb.State()).To(Equal(gobreaker.StateClosed))
				Expect(inner.calls).To(Equal(5))
			})

			It("should not trip on timeout errors", func() {
				inner.err = context.DeadlineExceeded

				failTimes(5)
				Expect(cb.State()).To(Equal(gobreaker.StateClosed))
			})
		})

		Context("with failures that should trip", func() {
			It("should trip on server errors (5xx)", func() {
				inner.err = &scorer.APIError{StatusCode: http.StatusServiceUnavailable}

				failTimes(3)
				Expect(cb.State()).To(Equal(gobreaker.StateOpen))

				_, err := cb.Analyze(ctx, req)
				Expect(err).To(MatchError(gobreaker.ErrOpenState))
				Expect(inner.calls).To(Equal(3))
			})

			It("should trip on authentication errors", func() {
				inner.err = &scorer.APIError{StatusCode: http.StatusForbidden, Status: "PERMISSION_DENIED"}

				failTimes(3)
				Expect(cb.State()).To(Equal(gobreaker.StateOpen))
			})

			It("should trip on unknown errors", func() {
				inner.err = errors.New("connection reset")

				failTimes(3)
				Expect(cb.State()).To(Equal(gobreaker.StateOpen))
			})
		})
	})

	Describe("Recovery", func() {
		It("should close again after a successful half-open request", func() {
			cb = scorer.NewCircuitBreakerTransport(inner, &scorer.CircuitBreakerConfig{
				MaxRequests: 1,
				Interval:    time.Second,
				Timeout:     50 * time.Millisecond,
				ReadyToTrip: tripAfterThree,
			})

			inner.err = errors.New("server error")
			failTimes(3)
			Expect(cb.State()).To(Equal(gobreaker.StateOpen))

			Eventually(cb.State).WithTimeout(time.Second).Should(Equal(gobreaker.StateHalfOpen))

			inner.err = nil
			inner.response = scoresResponse(map[scorer.Attribute]float64{scorer.Toxicity: 0.1})
			_, err := cb.Analyze(ctx, req)
			Expect(err).ToNot(HaveOccurred())
			Expect(cb.State()).To(Equal(gobreaker.StateClosed))
		})
	})

	Describe("Health Check", func() {
		It("should report healthy when circuit is closed", func() {
			health := cb.GetHealth()
			Expect(health.Healthy).To(BeTrue())
			Expect(health.Status).To(Equal("closed"))
			Expect(health.Details["state"]).To(Equal("closed"))
		})

		It("should report unhealthy when circuit is open", func() {
			inner.err = errors.New("server error")
			failTimes(3)

			health := cb.GetHealth()
			Expect(health.Healthy).To(BeFalse())
			Expect(health.Status).To(Equal("open"))
			Expect(health.Details["consecutive_failures"]).To(Equal(uint32(0)))
		})

		It("should report degraded when circuit is half-open", func() {
			cb = scorer.NewCircuitBreakerTransport(inner, &scorer.CircuitBreakerConfig{
				MaxRequests: 1,
				Interval:    time.Second,
				Timeout:     50 * time.Millisecond,
				ReadyToTrip: tripAfterThree,
			})

			inner.err = errors.New("server error")
			failTimes(3)
			time.Sleep(60 * time.Millisecond)

			health := cb.GetHealth()
			Expect(health.Healthy).To(BeTrue())
			Expect(health.Status).To(Equal("half-open"))
		})
	})

	Describe("State Change Callbacks", func() {
		It("should call state change callback", func() {
			var (
				mu      sync.Mutex
				changes []string
			)
			cb = scorer.NewCircuitBreakerTransport(inner, &scorer.CircuitBreakerConfig{
				MaxRequests: 3,
				Interval:    10 * time.Second,
				Timeout:     5 * time.Second,
				ReadyToTrip: tripAfterThree,
				OnStateChange: func(name string, from, to gobreaker.State) {
					mu.Lock()
					defer mu.Unlock()
					changes = append(changes, name+":"+from.String()+"->"+to.String())
				},
			})

			inner.err = errors.New("server error")
			failTimes(3)

			mu.Lock()
			defer mu.Unlock()
			Expect(changes).To(ContainElement("perspective-api:closed->open"))
		})
	})

	Describe("Client integration", func() {
		It("should turn an open circuit into unavailable scores", func() {
			inner.err = &scorer.APIError{StatusCode: http.StatusInternalServerError}
			failTimes(3)

			client, err := scorer.NewWithTransport(cb, scorer.WithLimiter(noWaitLimiter{}))
			Expect(err).ToNot(HaveOccurred())

			result, err := client.Score(ctx, "hello")
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Outcome).To(Equal(scorer.OutcomeTransportFailure))
			Expect(result.Err).To(MatchError(gobreaker.ErrOpenState))
			Expect(result.Scores[scorer.Toxicity]).To(Equal(scorer.Unavailable))

			health := client.GetHealth(ctx)
			Expect(health.Healthy).To(BeFalse())
			Expect(health.Status).To(Equal("open"))
			Expect(health.Details["qps"]).To(Equal(1.0))
		})
	})

	Describe("ShouldTripCircuit", func() {
		DescribeTable("error classification",
			func(err error, trip bool) {
				Expect(scorer.ShouldTripCircuit(err)).To(Equal(trip))
			},
			Entry("nil", nil, false),
			Entry("quota exhausted", &scorer.APIError{StatusCode: 429}, false),
			Entry("server error", &scorer.APIError{StatusCode: 500}, true),
			Entry("bad request", &scorer.APIError{StatusCode: 400}, true),
			Entry("moderation rate limit", &openai.APIError{HTTPStatusCode: 429}, false),
			Entry("moderation auth error", &openai.APIError{HTTPStatusCode: 401}, true),
			Entry("deadline", context.DeadlineExceeded, false),
			Entry("cancelled", context.Canceled, false),
			Entry("unknown", errors.New("unknown"), true),
		)
	})
})
