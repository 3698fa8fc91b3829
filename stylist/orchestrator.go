package stylist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"closetapi/metrics"
	"closetapi/services"
)

const DefaultTimeout = 45 * time.Second

type Orchestrator struct {
	chat    services.ChatCompletionProvider
	timeout time.Duration
	metrics *metrics.Registry
}

type Option func(*Orchestrator)

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

func NewOrchestrator(chat services.ChatCompletionProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{chat: chat, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitUserMessage records the utterance, asks the model for a reply and
// records exactly one assistant message. Completion failures are not returned:
// they become FallbackMessage in the transcript. Errors are returned only when
// nothing was submitted (empty text, a turn already running, a closed session)
// or when the session was closed while waiting for the model.
func (o *Orchestrator) SubmitUserMessage(ctx context.Context, session *Session, utterance string) (Message, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Message{}, ErrEmptyUtterance
	}

	t, err := session.begin(utterance)
	if err != nil {
		return Message{}, err
	}

	// the reply belongs to the session, not to the request that asked for it
	ctx = context.WithoutCancel(ctx)

	reply, err := o.complete(ctx, t)
	if err != nil {
		logEvent := log.Error().Err(err).Str("session", session.ID)
		if status, ok := services.StatusCode(err); ok {
			logEvent = logEvent.Int("status", status)
		}
		logEvent.Msgf("[Stylist: %s] completion failed", session.ID)
		sentry.CaptureException(fmt.Errorf("[Stylist: %s] completion failed: %w", session.ID, err))

		o.metrics.Inc(ctx, metrics.StylistTurns, map[string]string{"outcome": "fallback"})
		return o.finish(session, FallbackMessage, nil, false)
	}

	if reply.Kind == ReplyOutfit {
		if violations := CheckOutfit(reply.Outfit, t.closet); len(violations) > 0 {
			log.Warn().
				Str("session", session.ID).
				Uints("outfit", reply.Outfit).
				Strs("violations", lo.Map(violations, func(v Violation, _ int) string { return string(v) })).
				Msgf("[Stylist: %s] proposed outfit breaks the rules", session.ID)
			for _, v := range violations {
				o.metrics.Inc(ctx, metrics.OutfitViolations, map[string]string{"rule": string(v)})
			}
		}
	}

	o.metrics.Inc(ctx, metrics.StylistTurns, map[string]string{"outcome": string(reply.Kind)})
	return o.finish(session, reply.Text, reply.Outfit, reply.Kind == ReplyOutfit)
}

func (o *Orchestrator) complete(ctx context.Context, t turn) (Reply, error) {
	messages, err := buildMessages(t)
	if err != nil {
		return Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	content, err := o.chat.CreateChatCompletion(ctx, messages)
	if err != nil {
		return Reply{}, err
	}
	return ParseCompletion(content), nil
}

func (o *Orchestrator) finish(session *Session, text string, outfit []uint, replaceOutfit bool) (Message, error) {
	msg, err := session.finish(text, outfit, replaceOutfit)
	if err != nil {
		log.Info().Str("session", session.ID).Msgf("[Stylist: %s] reply dropped, session closed", session.ID)
	}
	return msg, err
}
