package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytranslate/relaytranslate/internal/dispatch"
	"github.com/relaytranslate/relaytranslate/internal/events"
	"github.com/relaytranslate/relaytranslate/internal/langhint"
	"github.com/relaytranslate/relaytranslate/internal/translation"
	"github.com/relaytranslate/relaytranslate/internal/worker"
)

type translateCall struct {
	Text   string
	Source langhint.Hint
	Target translation.Language
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []translateCall
	fn    func(text string) (string, error)
}

func (f *fakeTranslator) Do(_ context.Context, req translation.Request) translation.Result {
	f.mu.Lock()
	f.calls = append(f.calls, translateCall{Text: req.Text, Source: req.Source, Target: req.Target})
	f.mu.Unlock()
	if f.fn == nil {
		return translation.Result{Text: "translated", Success: true}
	}
	text, err := f.fn(req.Text)
	if err != nil {
		return translation.Result{ErrorKind: translation.KindOf(err)}
	}
	return translation.Result{Text: text, Success: true}
}

func (f *fakeTranslator) Calls() []translateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]translateCall(nil), f.calls...)
}

type sentMessage struct {
	ChatID  int64
	ReplyTo int
	Text    string
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	deleted  []int
	nextID   int
	replyErr error
	panics   bool
}

func (f *fakeMessenger) Reply(_ context.Context, chatID int64, replyTo int, text string) (int, error) {
	if f.panics {
		panic("messenger exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return 0, f.replyErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return 1000 + f.nextID, nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TranslationEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event events.TranslationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) Events() []events.TranslationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TranslationEvent(nil), r.events...)
}

type fixture struct {
	pool       *worker.Pool
	pipeline   *dispatch.Pipeline
	translator *fakeTranslator
	messenger  *fakeMessenger
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, policy translation.Policy, notice bool) *fixture {
	t.Helper()
	return newFixtureWithPool(t, policy, notice, worker.DefaultPoolConfig())
}

func newFixtureWithPool(t *testing.T, policy translation.Policy, notice bool, poolConfig worker.PoolConfig) *fixture {
	t.Helper()

	pool := worker.NewPool(poolConfig, zerolog.Nop())
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	f := &fixture{
		pool:       pool,
		translator: &fakeTranslator{},
		messenger:  &fakeMessenger{},
		publisher:  &recordingPublisher{},
	}
	f.pipeline = dispatch.NewPipeline(dispatch.PipelineConfig{
		Policy:           policy,
		Translator:       f.translator,
		Messenger:        f.messenger,
		Pool:             pool,
		Publisher:        f.publisher,
		ProcessingNotice: notice,
		Logger:           zerolog.Nop(),
	})
	return f
}

func message(text string, chatType dispatch.ChatType) dispatch.Message {
	return dispatch.Message{
		ID:        42,
		ChatID:    -100123,
		ChatType:  chatType,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func TestPipeline_Handle_Skips(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "   \n\t"},
		{name: "single rune", text: "你"},
		{name: "command", text: "/start"},
		{name: "command with chinese", text: "/help 你好"},
		{name: "unknown language", text: "hello there"},
		{name: "digits", text: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, translation.PolicyUrdu(), true)

			outcome := f.pipeline.Handle(context.Background(), message(tt.text, dispatch.ChatGroup))

			assert.Equal(t, dispatch.OutcomeSkipped, outcome)
			assert.Empty(t, f.translator.Calls(), "no translation request expected")
			assert.Empty(t, f.messenger.Sent(), "no message expected")
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestPipeline_Handle_NoTargetForHint(t *testing.T) {
	f := newFixture(t, translation.NewPolicy(map[langhint.Hint]translation.Language{
		langhint.HintChinese: translation.LanguageEnglish,
	}), false)

	outcome := f.pipeline.Handle(context.Background(), message("kumusta ka", dispatch.ChatDirect))

	assert.Equal(t, dispatch.OutcomeSkipped, outcome)
	assert.Empty(t, f.translator.Calls())
}

func TestPipeline_Handle_TranslatesByPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     translation.Policy
		text       string
		wantSource langhint.Hint
		wantTarget translation.Language
		wantPrefix string
	}{
		{
			name:       "chinese to urdu",
			policy:     translation.PolicyUrdu(),
			text:       "你好世界",
			wantSource: langhint.HintChinese,
			wantTarget: translation.LanguageUrdu,
			wantPrefix: "🌐 Urdu:\n",
		},
		{
			name:       "chinese to english",
			policy:     translation.PolicyEnglish(),
			text:       "你好世界",
			wantSource: langhint.HintChinese,
			wantTarget: translation.LanguageEnglish,
			wantPrefix: "🌐 English:\n",
		},
		{
			name:       "tagalog to english",
			policy:     translation.PolicyUrdu(),
			text:       "kumusta ka",
			wantSource: langhint.HintTagalog,
			wantTarget: translation.LanguageEnglish,
			wantPrefix: "🌐 English:\n",
		},
		{
			name:       "urdu to english",
			policy:     translation.PolicyUrdu(),
			text:       "السلام علیکم",
			wantSource: langhint.HintUrdu,
			wantTarget: translation.LanguageEnglish,
			wantPrefix: "🌐 English:\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.policy, false)

			outcome := f.pipeline.Handle(context.Background(), message("  "+tt.text+"  ", dispatch.ChatGroup))

			require.Equal(t, dispatch.OutcomeSent, outcome)

			calls := f.translator.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.text, calls[0].Text, "text is trimmed before translation")
			assert.Equal(t, tt.wantSource, calls[0].Source)
			assert.Equal(t, tt.wantTarget, calls[0].Target)

			sent := f.messenger.Sent()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantPrefix+"translated", sent[0].Text)
			assert.Equal(t, 42, sent[0].ReplyTo)
			assert.Equal(t, int64(-100123), sent[0].ChatID)

			evts := f.publisher.Events()
			require.Len(t, evts, 1)
			assert.Equal(t, "sent", evts[0].Outcome)
			assert.Equal(t, tt.wantSource.Code(), evts[0].Source)
			assert.Equal(t, string(tt.wantTarget), evts[0].Target)
		})
	}
}

func TestPipeline_Handle_IdenticalTranslationIsSkipped(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	f.translator.fn = func(text string) (string, error) { return text, nil }

	outcome := f.pipeline.Handle(context.Background(), message("kumusta ka", dispatch.ChatDirect))

	assert.Equal(t, dispatch.OutcomeSkipped, outcome)
	assert.Len(t, f.translator.Calls(), 1)
	assert.Empty(t, f.messenger.Sent())
}

func TestPipeline_Handle_FailureRepliesInGroupsOnly(t *testing.T) {
	translateErr := &translation.Error{Kind: translation.KindRateLimited, StatusCode: 429, Err: errors.New("slow down")}

	t.Run("group", func(t *testing.T) {
		f := newFixture(t, translation.PolicyUrdu(), false)
		f.translator.fn = func(string) (string, error) { return "", translateErr }

		outcome := f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatGroup))

		assert.Equal(t, dispatch.OutcomeFailed, outcome)
		sent := f.messenger.Sent()
		require.Len(t, sent, 1)
		assert.NotContains(t, sent[0].Text, "slow down", "error details stay in the logs")
		assert.NotContains(t, sent[0].Text, "429")

		evts := f.publisher.Events()
		require.Len(t, evts, 1)
		assert.Equal(t, "failed", evts[0].Outcome)
		assert.Equal(t, "rate_limited", evts[0].ErrorKind)
	})

	t.Run("direct", func(t *testing.T) {
		f := newFixture(t, translation.PolicyUrdu(), false)
		f.translator.fn = func(string) (string, error) { return "", translateErr }

		outcome := f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatDirect))

		assert.Equal(t, dispatch.OutcomeFailed, outcome)
		assert.Empty(t, f.messenger.Sent())
	})
}

func TestPipeline_Handle_ProcessingNotice(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), true)

	outcome := f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatGroup))

	require.Equal(t, dispatch.OutcomeSent, outcome)
	sent := f.messenger.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "Translating")
	assert.Equal(t, "🌐 Urdu:\ntranslated", sent[1].Text)

	f.messenger.mu.Lock()
	defer f.messenger.mu.Unlock()
	assert.Equal(t, []int{1001}, f.messenger.deleted, "notice is retracted")
}

func TestPipeline_Handle_DeliveryFailure(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	f.messenger.replyErr = errors.New("chat not found")

	outcome := f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatGroup))

	assert.Equal(t, dispatch.OutcomeFailed, outcome)
	evts := f.publisher.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, "delivery", evts[0].ErrorKind)
}

func TestPipeline_Handle_RecoversPanics(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	f.messenger.panics = true

	var outcome dispatch.Outcome
	assert.NotPanics(t, func() {
		outcome = f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatGroup))
	})
	assert.Equal(t, dispatch.OutcomeFailed, outcome)
	assert.Equal(t, int64(1), f.pipeline.Stats().Failed.Load())
}

func TestPipeline_Handle_PublisherErrorIsIgnored(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	f.publisher.err = errors.New("pubsub unavailable")

	outcome := f.pipeline.Handle(context.Background(), message("你好世界", dispatch.ChatGroup))

	assert.Equal(t, dispatch.OutcomeSent, outcome)
}

func TestPipeline_SubmitAndWait(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	f.translator.fn = func(string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, f.pipeline.Submit(ctx, message("你好世界", dispatch.ChatGroup)))
	}
	// Cancelling the submitting context does not abort in-flight messages.
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, f.pipeline.Wait(waitCtx))

	stats := f.pipeline.Stats()
	assert.Equal(t, int64(10), stats.Sent.Load())
	assert.Equal(t, int64(0), stats.Failed.Load())
	assert.Len(t, f.messenger.Sent(), 10)
}

func TestPipeline_Wait_RespectsContext(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	release := make(chan struct{})
	f.translator.fn = func(string) (string, error) {
		<-release
		return "done", nil
	}
	defer close(release)

	require.NoError(t, f.pipeline.Submit(context.Background(), message("你好世界", dispatch.ChatGroup)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.pipeline.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_Submit_BlocksWhenQueueIsFull(t *testing.T) {
	f := newFixtureWithPool(t, translation.PolicyUrdu(), false, worker.PoolConfig{Size: 1, QueueSize: 1})
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	f.translator.fn = func(string) (string, error) {
		started <- struct{}{}
		<-release
		return "done", nil
	}
	defer close(release)

	ctx := context.Background()
	require.NoError(t, f.pipeline.Submit(ctx, message("你好世界", dispatch.ChatGroup)))
	<-started
	require.NoError(t, f.pipeline.Submit(ctx, message("你好世界", dispatch.ChatGroup)), "one message fits in the queue")

	full, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := f.pipeline.Submit(full, message("你好世界", dispatch.ChatGroup))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(2), f.pool.Stats().Submitted.Load())
}

func TestPipeline_Submit_AfterPoolShutdown(t *testing.T) {
	f := newFixture(t, translation.PolicyUrdu(), false)
	require.NoError(t, f.pool.Shutdown(context.Background()))

	err := f.pipeline.Submit(context.Background(), message("你好世界", dispatch.ChatGroup))

	assert.ErrorIs(t, err, worker.ErrPoolClosed)
	require.NoError(t, f.pipeline.Wait(context.Background()), "rejected messages are not tracked")
	assert.Empty(t, f.translator.Calls())
}

func TestFormatReply(t *testing.T) {
	assert.Equal(t, "🌐 English:\nhello", dispatch.FormatReply(translation.LanguageEnglish, "hello"))
}
