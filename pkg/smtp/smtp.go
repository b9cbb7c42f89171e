package smtp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/cjfitness/notifier/internal/adapters/metrics"
	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/internal/domain/dto"
	"github.com/cjfitness/notifier/pkg/logger/types"
)

// Sender is the part of *gomail.Dialer the client needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Options configures the mail client.
type Options struct {
	From      string
	FromName  string
	Domain    string
	Brand     string
	PortalURL string

	// RatePerSecond limits outgoing messages; 0 disables the limit.
	RatePerSecond float64
	Burst         int

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit; BreakerCooldown is how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client is the mail client.
//
// It is the external Notifier: every call returns an explicit delivery result
// and never an error, and a stuck SMTP server is cut off by the caller's
// context and, after repeated failures, by the circuit breaker.
type Client struct {
	sender    Sender
	opts      Options
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	templates *templates
	logger    *types.Logger
}

// NewClient инициализирует Client.
func NewClient(sender Sender, opts Options, logger *types.Logger) (*Client, error) {
	tmpl, err := newTemplates()
	if err != nil {
		return nil, err
	}
	if opts.Brand == "" {
		opts.Brand = "CJ Fitness"
	}
	if opts.FromName == "" {
		opts.FromName = opts.Brand
	}
	if opts.Domain == "" {
		if at := strings.LastIndex(opts.From, "@"); at >= 0 {
			opts.Domain = opts.From[at+1:]
		}
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = time.Minute
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	c := &Client{
		sender:    sender,
		opts:      opts,
		limiter:   limiter,
		templates: tmpl,
		logger:    logger,
	}

	const breakerName = "smtp"
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return c, nil
}

// Send delivers msg to the contact's e-mail address.
func (c *Client) Send(ctx context.Context, msg dto.Message) dto.DeliveryResult {
	if !msg.To.HasAddress() {
		return dto.DeliverySkipped(errorz.ErrNoRecipientAddress)
	}

	start := time.Now()
	m, err := c.buildMessage(msg)
	if err != nil {
		return dto.DeliveryFailed(fmt.Errorf("build message: %w", err), time.Since(start))
	}

	if err = c.limiter.Wait(ctx); err != nil {
		return dto.DeliveryFailed(fmt.Errorf("rate limit: %w", err), time.Since(start))
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.dialAndSend(ctx, m)
	})
	if err != nil {
		if IsCircuitOpen(err) {
			c.logger.Debugf("Email to %s not attempted: %v", msg.To.Email, err)
		}
		return dto.DeliveryFailed(err, time.Since(start))
	}

	c.logger.Debugf("Email sent to %s (kind=%s)", msg.To.Email, msg.Kind)
	return dto.Delivered(time.Since(start))
}

// dialAndSend bounds the blocking gomail call by ctx. gomail has no context
// support, so on cancellation the send goroutine finishes in the background.
func (c *Client) dialAndSend(ctx context.Context, m *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- c.sender.DialAndSend(m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (c *Client) buildMessage(msg dto.Message) (*gomail.Message, error) {
	html, err := c.templates.render(msg.Kind, templateData{
		Brand:      c.opts.Brand,
		Name:       displayName(msg.To),
		Text:       msg.Text,
		PortalURL:  c.opts.PortalURL,
		CheckInURL: c.checkInURL(),
	})
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("Message-ID", generateMessageID(c.opts.Domain))
	m.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	m.SetAddressHeader("From", c.opts.From, c.opts.FromName)
	m.SetHeader("To", msg.To.Email)
	m.SetHeader("Subject", c.subject(msg))
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", html)
	return m, nil
}

func (c *Client) subject(msg dto.Message) string {
	if msg.Subject != "" {
		return msg.Subject
	}
	switch msg.Kind {
	case dto.MessageKindCheckIn:
		return "Action Required: Weekly Check-in"
	default:
		return fmt.Sprintf("New Reminder - %s", c.opts.Brand)
	}
}

func (c *Client) checkInURL() string {
	if c.opts.PortalURL == "" {
		return ""
	}
	return strings.TrimRight(c.opts.PortalURL, "/") + "/client/check-ins"
}

func displayName(contact dto.Contact) string {
	if contact.DisplayName != "" {
		return contact.DisplayName
	}
	return "there"
}

func generateMessageID(domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// IsCircuitOpen reports whether err means the breaker rejected the send.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
