package smtp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/pkg/logger"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestClient(t *testing.T, sender Sender, opts Options) *Client {
	t.Helper()
	if opts.From == "" {
		opts.From = "no-reply@cjfitness.test"
	}
	c, err := NewClient(sender, opts, logger.Nop())
	require.NoError(t, err)
	return c
}

var ana = dto.Contact{ClientID: "c1", Email: "ana@example.com", DisplayName: "Ana"}

func TestSend_Delivered(t *testing.T) {
	sender := &fakeSender{}
	c := newTestClient(t, sender, Options{})

	res := c.Send(context.Background(), dto.Message{
		Kind: dto.MessageKindReminder,
		To:   ana,
		Text: "Drink water",
	})

	assert.Equal(t, dto.DeliveryStatusDelivered, res.Status)
	assert.True(t, res.OK())
	require.Equal(t, 1, sender.count())

	m := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"New Reminder - CJ Fitness"}, m.GetHeader("Subject"))
	require.Len(t, m.GetHeader("Message-ID"), 1)
	assert.True(t, strings.HasSuffix(m.GetHeader("Message-ID")[0], "@cjfitness.test>"))
}

func TestSend_ExplicitSubject(t *testing.T) {
	sender := &fakeSender{}
	c := newTestClient(t, sender, Options{})

	res := c.Send(context.Background(), dto.Message{
		Kind:    dto.MessageKindCheckIn,
		To:      ana,
		Subject: "Weekly check-in",
		Text:    "Happy Monday!",
	})

	require.True(t, res.OK())
	assert.Equal(t, []string{"Weekly check-in"}, sender.sent[0].GetHeader("Subject"))
}

func TestSend_SkippedWithoutAddress(t *testing.T) {
	sender := &fakeSender{}
	c := newTestClient(t, sender, Options{})

	res := c.Send(context.Background(), dto.Message{
		Kind: dto.MessageKindReminder,
		To:   dto.Contact{ClientID: "c2"},
		Text: "Stretch",
	})

	assert.Equal(t, dto.DeliveryStatusSkipped, res.Status)
	assert.ErrorIs(t, res.Err, errorz.ErrNoRecipientAddress)
	assert.Zero(t, sender.count())
}

func TestSend_Failed(t *testing.T) {
	boom := errors.New("535 authentication failed")
	c := newTestClient(t, &fakeSender{err: boom}, Options{})

	res := c.Send(context.Background(), dto.Message{Kind: dto.MessageKindReminder, To: ana, Text: "x"})

	assert.Equal(t, dto.DeliveryStatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, boom)
}

func TestSend_TimeoutIsBoundedByContext(t *testing.T) {
	c := newTestClient(t, &fakeSender{delay: 2 * time.Second}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := c.Send(ctx, dto.Message{Kind: dto.MessageKindReminder, To: ana, Text: "x"})

	assert.Equal(t, dto.DeliveryStatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSend_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	c := newTestClient(t, sender, Options{BreakerFailures: 2, BreakerCooldown: time.Hour})

	msg := dto.Message{Kind: dto.MessageKindReminder, To: ana, Text: "x"}
	for i := 0; i < 2; i++ {
		res := c.Send(context.Background(), msg)
		require.Equal(t, dto.DeliveryStatusFailed, res.Status)
		assert.False(t, IsCircuitOpen(res.Err))
	}

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	res := c.Send(context.Background(), msg)
	assert.Equal(t, dto.DeliveryStatusFailed, res.Status)
	assert.True(t, IsCircuitOpen(res.Err))
	assert.Zero(t, sender.count())
}

func TestSend_RateLimitRespectsContext(t *testing.T) {
	c := newTestClient(t, &fakeSender{}, Options{RatePerSecond: 0.001, Burst: 1})
	msg := dto.Message{Kind: dto.MessageKindReminder, To: ana, Text: "x"}

	require.True(t, c.Send(context.Background(), msg).OK())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := c.Send(ctx, msg)
	assert.Equal(t, dto.DeliveryStatusFailed, res.Status)
}

func TestTemplates_Render(t *testing.T) {
	tmpl, err := newTemplates()
	require.NoError(t, err)

	t.Run("reminder", func(t *testing.T) {
		html, err := tmpl.render(dto.MessageKindReminder, templateData{Brand: "CJ Fitness", Name: "Ana", Text: "Drink water"})
		require.NoError(t, err)
		assert.Contains(t, html, "Hi Ana,")
		assert.Contains(t, html, "Drink water")
		assert.Contains(t, html, "You have a new Alarm!")
		assert.NotContains(t, html, "Open Client Portal")
	})

	t.Run("check-in with portal link", func(t *testing.T) {
		html, err := tmpl.render(dto.MessageKindCheckIn, templateData{
			Brand:      "CJ Fitness",
			Name:       "Ana",
			Text:       "Submit your check-in",
			PortalURL:  "https://portal.test",
			CheckInURL: "https://portal.test/client/check-ins",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "Good morning Ana!")
		assert.Contains(t, html, "https://portal.test/client/check-ins")
		assert.Contains(t, html, "Open Client Portal")
	})

	t.Run("escapes client text", func(t *testing.T) {
		html, err := tmpl.render(dto.MessageKindReminder, templateData{Name: "Ana", Text: "<script>x</script>"})
		require.NoError(t, err)
		assert.NotContains(t, html, "<script>")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := tmpl.render(dto.MessageKind("sms"), templateData{})
		assert.Error(t, err)
	})
}
