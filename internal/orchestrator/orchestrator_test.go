package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/quiz"
	"github.com/abhisek/aptiq/internal/ratelimit"
	"github.com/abhisek/aptiq/internal/store"
)

const guidanceJSON = `{"answer":"Pick science if you enjoy experiments.","suggestions":["Visit a lab","Talk to a teacher"]}`

type memRecorder struct {
	mu     sync.Mutex
	events []store.OrchestrationEventData
}

func (r *memRecorder) AppendOrchestration(_ context.Context, d store.OrchestrationEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, d)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	mock     *llm.MockProvider
	cache    *cache.Memory
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	recorder *memRecorder
}

func newFixture(t *testing.T, limit int, cfg Config, responses ...llm.MockResponse) *fixture {
	t.Helper()
	m := metrics.New(nil)
	f := &fixture{
		mock:     llm.NewMockProvider(responses...),
		cache:    cache.NewMemory(),
		limiter:  ratelimit.New(ratelimit.Config{Window: time.Minute, Limit: limit}, m),
		metrics:  m,
		recorder: &memRecorder{},
	}
	f.orch = New(f.mock, f.cache, f.limiter,
		WithConfig(cfg),
		WithMetrics(m),
		WithRecorder(f.recorder),
	)
	return f
}

func guidanceIn(q string) GuidanceInput {
	return GuidanceInput{Question: q}
}

func TestGuidance_ProviderThenCache(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	ctx := context.Background()

	first := f.orch.GetGuidance(ctx, guidanceIn("Which stream should I pick?"))
	require.True(t, first.IsSuccess())
	assert.Equal(t, SourceProvider, first.Source)
	assert.False(t, first.Degraded)

	var g Guidance
	require.NoError(t, first.Decode(&g))
	assert.Equal(t, "Pick science if you enjoy experiments.", g.Answer)

	second := f.orch.GetGuidance(ctx, guidanceIn("  which STREAM should   i pick? "))
	require.True(t, second.IsSuccess())
	assert.Equal(t, SourceCache, second.Source)
	assert.JSONEq(t, string(first.Payload.Data), string(second.Payload.Data))
	assert.Equal(t, 1, f.mock.CallCount())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("miss")))
}

func TestGuidance_RateLimitedFallsBack(t *testing.T) {
	f := newFixture(t, 1, Config{},
		llm.MockResponse{Content: json.RawMessage(guidanceJSON)},
		llm.MockResponse{Content: json.RawMessage(guidanceJSON)},
	)
	ctx := WithIdentity(context.Background(), "student-1")

	require.Equal(t, SourceProvider, f.orch.GetGuidance(ctx, guidanceIn("first question")).Source)

	res := f.orch.GetGuidance(ctx, guidanceIn("second question"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)
	assert.True(t, res.Degraded)
	assert.Equal(t, KindRateLimitExceeded, res.Reason)
	assert.Equal(t, 1, f.mock.CallCount())

	// Cached answers are still served to a limited identity.
	cached := f.orch.GetGuidance(ctx, guidanceIn("first question"))
	assert.Equal(t, SourceCache, cached.Source)

	// Other identities have their own window.
	other := f.orch.GetGuidance(WithIdentity(context.Background(), "student-2"), guidanceIn("second question"))
	assert.Equal(t, SourceProvider, other.Source)
}

func TestGuidance_ProviderUnavailableNotCached(t *testing.T) {
	f := newFixture(t, 20, Config{},
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}},
		llm.MockResponse{Content: json.RawMessage(guidanceJSON)},
	)
	ctx := context.Background()

	res := f.orch.GetGuidance(ctx, guidanceIn("What next?"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderUnavailable, res.Reason)
	assert.Equal(t, 0, f.cache.Len())

	res = f.orch.GetGuidance(ctx, guidanceIn("What next?"))
	assert.Equal(t, SourceProvider, res.Source)
}

func TestGuidance_UpstreamRateLimitIsUnavailable(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})

	res := f.orch.GetGuidance(context.Background(), guidanceIn("What next?"))
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderUnavailable, res.Reason)
}

func TestGuidance_Timeout(t *testing.T) {
	f := newFixture(t, 20, Config{ProviderTimeout: 20 * time.Millisecond},
		llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	f.mock.SetDelay(500 * time.Millisecond)

	start := time.Now()
	res := f.orch.GetGuidance(context.Background(), guidanceIn("Slow?"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderTimeout, res.Reason)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestGuidance_MalformedReturnsRawText(t *testing.T) {
	raw := "Honestly, science is a great choice for you!"
	f := newFixture(t, 20, Config{}, llm.MockText(raw), llm.MockText(raw))
	ctx := context.Background()

	res := f.orch.GetGuidance(ctx, guidanceIn("Science?"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceProvider, res.Source)
	assert.True(t, res.Degraded)
	assert.Equal(t, KindMalformedResponse, res.Reason)
	assert.Equal(t, raw, res.Payload.Text)
	assert.Empty(t, res.Payload.Data)

	// Malformed text is never cached.
	assert.Equal(t, 0, f.cache.Len())
	f.orch.GetGuidance(ctx, guidanceIn("Science?"))
	assert.Equal(t, 2, f.mock.CallCount())
}

func TestGuidance_SchemaMismatchIsMalformed(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockText(`{"reply":"wrong shape"}`))

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Shape?"))
	assert.Equal(t, KindMalformedResponse, res.Reason)
	assert.Equal(t, `{"reply":"wrong shape"}`, res.Payload.Text)
}

func TestGuidance_JSONWrappedInProse(t *testing.T) {
	text := "Here is my advice:\n```json\n" + guidanceJSON + "\n```\nGood luck!"
	f := newFixture(t, 20, Config{}, llm.MockText(text))

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Wrapped?"))
	require.True(t, res.IsSuccess())
	assert.False(t, res.Degraded)
	assert.JSONEq(t, guidanceJSON, string(res.Payload.Data))
	assert.Equal(t, text, res.Payload.Text)
}

func TestGuidance_StructuredOutputRejection(t *testing.T) {
	f := newFixture(t, 20, Config{StructuredOutput: true}, llm.MockResponse{
		Err: &llm.ErrInvalidResponse{Content: json.RawMessage("not json at all"), Err: errors.New("invalid JSON")},
	})

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Structured?"))
	assert.Equal(t, SourceProvider, res.Source)
	assert.Equal(t, KindMalformedResponse, res.Reason)
	assert.Equal(t, "not json at all", res.Payload.Text)
	require.Len(t, f.mock.Calls, 1)
	assert.NotNil(t, f.mock.Calls[0].Schema)
}

func TestGuidance_PanicRecovered(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Panic: "provider exploded"})

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Panic?"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderUnavailable, res.Reason)
}

func TestGuidance_Validation(t *testing.T) {
	f := newFixture(t, 20, Config{})

	tests := []struct {
		name string
		in   GuidanceInput
	}{
		{"empty", GuidanceInput{}},
		{"whitespace", GuidanceInput{Question: " \n\t "}},
		{"too long", GuidanceInput{Question: stringOf('a', MaxQuestionLength+1)}},
		{"empty profile key", GuidanceInput{Question: "ok", Profile: map[string]string{" ": "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.orch.GetGuidance(context.Background(), tt.in)
			require.False(t, res.IsSuccess())
			assert.Equal(t, KindValidation, res.Failure.Kind)
			assert.Equal(t, KindValidation, KindOf(res.Err()))
		})
	}
	assert.Equal(t, 0, f.mock.CallCount())
}

func stringOf(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

func TestGuidance_ConcurrentIdenticalCallsCoalesce(t *testing.T) {
	f := newFixture(t, 100, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	f.mock.SetDelay(50 * time.Millisecond)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.orch.GetGuidance(context.Background(), guidanceIn("Same question"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.mock.CallCount())
	for i, r := range results {
		require.True(t, r.IsSuccess(), "result %d", i)
		assert.False(t, r.Degraded, "result %d", i)
		assert.JSONEq(t, guidanceJSON, string(r.Payload.Data), "result %d", i)
	}
}

func TestGuidance_CallerCancelStopsWaiting(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	f.mock.SetDelay(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := f.orch.GetGuidance(ctx, guidanceIn("Impatient?"))
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderTimeout, res.Reason)
}

func TestRecordsEvents(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	ctx := WithIdentity(context.Background(), "student-9")

	f.orch.GetGuidance(ctx, guidanceIn("Log me"))
	f.orch.GetGuidance(ctx, GuidanceInput{})

	require.Len(t, f.recorder.events, 2)
	ok := f.recorder.events[0]
	assert.Equal(t, OpGuidance, ok.Operation)
	assert.Equal(t, "student-9", ok.Identity)
	assert.Equal(t, "provider", ok.Source)
	assert.True(t, ok.Success)
	assert.NotEmpty(t, ok.Fingerprint)

	bad := f.recorder.events[1]
	assert.False(t, bad.Success)
	assert.Equal(t, "validation", bad.Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Orchestrations.WithLabelValues(OpGuidance, "provider")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Orchestrations.WithLabelValues(OpGuidance, "failure")))
}

func TestIdentityDefaultsToAnonymous(t *testing.T) {
	assert.Equal(t, ratelimit.Anonymous, IdentityFrom(context.Background()))
	assert.Equal(t, ratelimit.Anonymous, IdentityFrom(WithIdentity(context.Background(), "")))
	assert.Equal(t, "u", IdentityFrom(WithIdentity(context.Background(), "u")))
}

func TestExecute_NilProviderFallsBack(t *testing.T) {
	o := New(nil, nil, nil)
	res := o.Execute(context.Background(), Call{Operation: "custom"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)
	assert.NotEmpty(t, res.Payload.Text)
}

func TestExecute_UndecodableCacheEntryIsMiss(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)})
	fp, err := guidanceIn("corrupt").fingerprint()
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(fp, []byte("{not json"), time.Minute))

	res := f.orch.GetGuidance(context.Background(), guidanceIn("corrupt"))
	assert.Equal(t, SourceProvider, res.Source)
}

func TestStream_ProviderAndValidation(t *testing.T) {
	body := `{"stream":"Commerce","reasoning":"numbers","careers":["CA"],"subjects":["Accounts"]}`
	f := newFixture(t, 20, Config{}, llm.MockText(body))
	ctx := context.Background()

	res := f.orch.RecommendStream(ctx, StreamInput{
		Scores:      quiz.ScoreVector{"commerce": 5, "science": 1},
		Preferences: []string{" Finance", "finance "},
	})
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceProvider, res.Source)

	var rec StreamRecommendation
	require.NoError(t, res.Decode(&rec))
	assert.Equal(t, "Commerce", rec.Stream)

	// Same vector and logically equal preferences hit the cache.
	again := f.orch.RecommendStream(ctx, StreamInput{
		Scores:      quiz.ScoreVector{"science": 1, "commerce": 5},
		Preferences: []string{"FINANCE"},
	})
	assert.Equal(t, SourceCache, again.Source)

	for _, in := range []StreamInput{
		{},
		{Scores: quiz.ScoreVector{"science": -1}},
		{Scores: quiz.ScoreVector{"": 1}},
	} {
		r := f.orch.RecommendStream(ctx, in)
		require.False(t, r.IsSuccess())
		assert.Equal(t, KindValidation, r.Failure.Kind)
	}
}

func TestStream_FallbackUsesRanking(t *testing.T) {
	f := newFixture(t, 20, Config{})

	res := f.orch.RecommendStream(context.Background(), StreamInput{
		Scores: quiz.ScoreVector{"science": 6, "commerce": 2, "arts": 0, "technology": 0},
	})
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceFallback, res.Source)

	var rec StreamRecommendation
	require.NoError(t, res.Decode(&rec))
	assert.Equal(t, "Science (PCM/PCB)", rec.Stream)
	assert.NotEmpty(t, rec.Careers)
	assert.NotEmpty(t, rec.Subjects)
}

func TestTranslate(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockText(`{"translated_text":"नमस्ते"}`))
	ctx := context.Background()

	res := f.orch.Translate(ctx, TranslateInput{Content: "Hello", TargetLanguage: "HI"})
	require.True(t, res.IsSuccess())
	var tr Translation
	require.NoError(t, res.Decode(&tr))
	assert.Equal(t, "नमस्ते", tr.TranslatedText)
	assert.Contains(t, f.mock.Calls[0].Messages[0].Content, "to hi")

	// Explicit "auto" source is the same request as an omitted one.
	again := f.orch.Translate(ctx, TranslateInput{Content: " Hello ", TargetLanguage: "hi", SourceLanguage: "Auto"})
	assert.Equal(t, SourceCache, again.Source)

	for _, in := range []TranslateInput{
		{TargetLanguage: "hi"},
		{Content: "x"},
		{Content: "x", TargetLanguage: "auto"},
		{Content: stringOf('a', MaxTranslateLength+1), TargetLanguage: "hi"},
	} {
		r := f.orch.Translate(ctx, in)
		require.False(t, r.IsSuccess())
		assert.Equal(t, KindValidation, r.Failure.Kind)
	}
}

// Every generative operation must produce a payload of the operation's
// shape when the provider is down.
func TestFallbackCompleteness(t *testing.T) {
	f := newFixture(t, 20, Config{})
	ctx := context.Background()

	t.Run("guidance", func(t *testing.T) {
		res := f.orch.GetGuidance(ctx, guidanceIn("anything"))
		require.True(t, res.IsSuccess())
		assert.Equal(t, SourceFallback, res.Source)
		require.NoError(t, llm.ValidateJSON(guidanceSchema, res.Payload.Data))
	})

	t.Run("stream", func(t *testing.T) {
		res := f.orch.RecommendStream(ctx, StreamInput{Scores: quiz.ScoreVector{"arts": 0}})
		require.True(t, res.IsSuccess())
		assert.Equal(t, SourceFallback, res.Source)
		require.NoError(t, llm.ValidateJSON(streamSchema, res.Payload.Data))
	})

	t.Run("translate", func(t *testing.T) {
		res := f.orch.Translate(ctx, TranslateInput{Content: "Keep this", TargetLanguage: "ta"})
		require.True(t, res.IsSuccess())
		assert.Equal(t, SourceFallback, res.Source)
		var tr Translation
		require.NoError(t, res.Decode(&tr))
		assert.Equal(t, "Keep this", tr.TranslatedText)
		assert.NotEmpty(t, tr.Note)
	})
}

func TestGuidance_ProfileKeysCollidingOnCaseRejected(t *testing.T) {
	f := newFixture(t, 20, Config{})

	in := GuidanceInput{Question: "Which stream?", Profile: map[string]string{"Grade": "10", "grade": "12"}}
	res := f.orch.GetGuidance(context.Background(), in)
	require.False(t, res.IsSuccess())
	assert.Equal(t, KindValidation, res.Failure.Kind)
	assert.Equal(t, 0, f.mock.CallCount())
}

func TestGuidance_FingerprintStable(t *testing.T) {
	in := GuidanceInput{
		Question: "Which stream suits me?",
		Profile:  map[string]string{"Grade": "10", "board": "CBSE", "city": "Pune", "Hobby": "chess"},
	}
	require.NoError(t, in.validate())

	first, err := in.fingerprint()
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		fp, err := in.fingerprint()
		require.NoError(t, err)
		require.Equal(t, first, fp, "iteration %d", i)
	}

	same := GuidanceInput{
		Question: "  which stream   suits me? ",
		Profile:  map[string]string{"grade": "10", "BOARD": "cbse", "City": "pune", "hobby": "Chess"},
	}
	fp, err := same.fingerprint()
	require.NoError(t, err)
	assert.Equal(t, first, fp)

	other, err := GuidanceInput{Question: in.Question, Profile: map[string]string{"grade": "12"}}.fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestStream_EquivalentVectorsShareCache(t *testing.T) {
	body := `{"stream":"Science (PCM/PCB)","reasoning":"labs","careers":["Engineer"],"subjects":["Physics"]}`
	f := newFixture(t, 20, Config{}, llm.MockText(body))
	ctx := context.Background()

	res := f.orch.RecommendStream(ctx, StreamInput{Scores: quiz.ScoreVector{"science": 6}})
	require.True(t, res.IsSuccess())
	assert.Equal(t, SourceProvider, res.Source)

	for _, scores := range []quiz.ScoreVector{
		{"Science": 6},
		{" SCIENCE ": 6},
		{"science": 6, "arts": 0},
		{"Science": 6, "Commerce": 0, "technology": 0},
	} {
		again := f.orch.RecommendStream(ctx, StreamInput{Scores: scores})
		require.True(t, again.IsSuccess())
		assert.Equal(t, SourceCache, again.Source, "scores %v", scores)
	}
	assert.Equal(t, 1, f.mock.CallCount())
}

func TestStream_CanonicalScores(t *testing.T) {
	tests := []struct {
		name string
		in   quiz.ScoreVector
		want quiz.ScoreVector
	}{
		{"lowercases", quiz.ScoreVector{"Science": 3}, quiz.ScoreVector{"science": 3}},
		{"drops zeros", quiz.ScoreVector{"science": 3, "arts": 0}, quiz.ScoreVector{"science": 3}},
		{"all zero kept", quiz.ScoreVector{"Arts": 0, "science": 0}, quiz.ScoreVector{"arts": 0, "science": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreamInput{Scores: tt.in}.canonicalScores())
		})
	}
}

func TestStream_TraitsCollidingOnCaseRejected(t *testing.T) {
	f := newFixture(t, 20, Config{})

	res := f.orch.RecommendStream(context.Background(), StreamInput{
		Scores: quiz.ScoreVector{"Science": 6, "science": 2},
	})
	require.False(t, res.IsSuccess())
	assert.Equal(t, KindValidation, res.Failure.Kind)
	assert.Equal(t, 0, f.mock.CallCount())
}

func TestAttempt_RequestCarriesJSONModeAndHashedUser(t *testing.T) {
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(guidanceJSON)},
		llm.MockResponse{Content: json.RawMessage(guidanceJSON)})

	ctx := WithIdentity(context.Background(), "student-42")
	require.True(t, f.orch.GetGuidance(ctx, guidanceIn("First question?")).IsSuccess())
	require.True(t, f.orch.GetGuidance(context.Background(), guidanceIn("Second question?")).IsSuccess())

	require.Len(t, f.mock.Calls, 2)
	tagged := f.mock.Calls[0]
	assert.True(t, tagged.JSON)
	assert.Len(t, tagged.User, 16)
	assert.NotContains(t, tagged.User, "student")
	assert.Equal(t, cache.HashText("student-42")[:16], tagged.User)

	assert.True(t, f.mock.Calls[1].JSON)
	assert.Empty(t, f.mock.Calls[1].User, "anonymous callers are not tagged")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		kind    ErrorKind
		rawText string
	}{
		{"typed timeout", &llm.ErrProviderTimeout{Err: errors.New("read tcp: i/o timeout")}, KindProviderTimeout, ""},
		{"context deadline", context.DeadlineExceeded, KindProviderTimeout, ""},
		{"rate limited upstream", &llm.ErrRateLimit{Err: errors.New("429")}, KindProviderUnavailable, ""},
		{"rejected", &llm.ErrRejected{Status: 401, Err: errors.New("bad key")}, KindProviderUnavailable, ""},
		{"invalid with text", &llm.ErrInvalidResponse{Content: json.RawMessage("not json"), Err: errors.New("x")}, KindMalformedResponse, "not json"},
		{"invalid without text", &llm.ErrInvalidResponse{Err: errors.New("no choices")}, KindProviderUnavailable, ""},
		{"truncated", &llm.ErrMaxTokensExceeded{Content: json.RawMessage(`{"answer":"cut`)}, KindMalformedResponse, `{"answer":"cut`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := classify(tc.err)
			if out.kind != tc.kind {
				t.Fatalf("kind = %q, want %q", out.kind, tc.kind)
			}
			if out.payload.Text != tc.rawText {
				t.Fatalf("text = %q, want %q", out.payload.Text, tc.rawText)
			}
		})
	}
}

func TestGuidance_TypedTimeoutWithoutDeadline(t *testing.T) {
	f := newFixture(t, 20, Config{},
		llm.MockResponse{Err: &llm.ErrProviderTimeout{Err: errors.New("gateway timeout")}})

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Upstream slow?"))
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, KindProviderTimeout, res.Reason)
}

func TestGuidance_TruncatedAnswerIsMalformed(t *testing.T) {
	cut := `{"answer":"Science keeps your opt`
	f := newFixture(t, 20, Config{}, llm.MockResponse{Content: json.RawMessage(cut), Stop: llm.StopMaxTokens})

	res := f.orch.GetGuidance(context.Background(), guidanceIn("Long answer?"))
	require.True(t, res.IsSuccess())
	assert.Equal(t, KindMalformedResponse, res.Reason)
	assert.Equal(t, cut, res.Payload.Text)
}
