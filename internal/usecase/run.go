package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"sitewatch/internal/config"
	"sitewatch/internal/detect"
	"sitewatch/internal/domain"
	"sitewatch/internal/normalize"
	"sitewatch/internal/ports"
)

// maxFailurePreview bounds how many failures a summary mail lists.
const maxFailurePreview = 20

// RunnerDeps wires all driven adapters into the run use case.
type RunnerDeps struct {
	Fetcher ports.Fetcher
	Store   ports.StateStore
	Subs    ports.SubscriptionSource
	Mailer  ports.Mailer
	Mail    config.MailConfig
	Logger  *slog.Logger
	Now     func() time.Time
}

// Runner executes one complete detection run: fetch, fingerprint, diff,
// persist, notify.
type Runner struct {
	fetcher ports.Fetcher
	store   ports.StateStore
	subs    ports.SubscriptionSource
	mailer  ports.Mailer
	mail    config.MailConfig
	logger  *slog.Logger
	now     func() time.Time
}

// Summary is the operator-facing outcome of a run.
type Summary struct {
	Checked int
	Changed int
	Failed  int
	Sent    int
}

type failure struct {
	label string
	url   string
	err   string
}

// NewRunner constructs the orchestration component.
func NewRunner(deps RunnerDeps) *Runner {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		fetcher: deps.Fetcher,
		store:   deps.Store,
		subs:    deps.Subs,
		mailer:  deps.Mailer,
		mail:    deps.Mail,
		logger:  logger,
		now:     now,
	}
}

// Run performs one batch run over the given sources. The store is saved
// exactly once, after every fetch has resolved, whether or not anything
// changed; only configuration-class problems make the run fail.
func (r *Runner) Run(ctx context.Context, srcs []domain.Source) (Summary, error) {
	var sum Summary

	stored, err := r.store.Load(ctx)
	if err != nil {
		return sum, fmt.Errorf("load state: %w", err)
	}

	r.logger.Info("run started", "sources", len(srcs), "known_urls", len(stored))

	outcomes := r.fetcher.FetchAll(ctx, srcs)
	now := r.now()

	var events []domain.ChangeEvent
	var failures []failure
	for _, out := range outcomes {
		sum.Checked++

		var fresh string
		if !out.Failed() {
			body := normalize.Decode(out.Body, out.ContentType)
			feedLike := normalize.FeedLike(out.ContentType, body)
			fresh = normalize.Fingerprint(normalize.Normalize(body, feedLike))
		}

		res := detect.Check(stored[out.Source.URL], out.Source, out.Err, fresh, now)
		stored[out.Source.URL] = res.Record

		switch res.State {
		case domain.StateFailed:
			sum.Failed++
			failures = append(failures, failure{label: out.Source.Label, url: out.Source.URL, err: out.Err})
			r.logger.Warn("source failed", "label", out.Source.Label, "url", out.Source.URL, "error", out.Err)
		case domain.StateChanged:
			sum.Changed++
			events = append(events, *res.Event)
			r.logger.Info("source changed", "label", out.Source.Label, "url", out.Source.URL)
		default:
			r.logger.Debug("source checked", "state", string(res.State), "url", out.Source.URL)
		}
	}

	if err := r.store.Save(ctx, stored); err != nil {
		return sum, fmt.Errorf("save state: %w", err)
	}

	sent, err := r.notify(ctx, now, events, failures)
	sum.Sent = sent
	if err != nil {
		return sum, err
	}

	r.logger.Info("run finished",
		"checked", sum.Checked,
		"changed", sum.Changed,
		"failed", sum.Failed,
		"sent", sum.Sent)
	return sum, nil
}

// notify dispatches mail per the configured mode. Send failures are
// logged and never returned; only configuration errors (no recipient,
// missing credentials, broken subscription table) propagate.
func (r *Runner) notify(ctx context.Context, now time.Time, events []domain.ChangeEvent, failures []failure) (int, error) {
	if r.mailer == nil {
		return 0, nil
	}
	if r.mail.Mode == config.ModeSubscribers {
		return r.notifySubscribers(ctx, now, events)
	}
	return r.notifyBroadcast(ctx, now, events, failures)
}

func (r *Runner) notifyBroadcast(ctx context.Context, now time.Time, events []domain.ChangeEvent, failures []failure) (int, error) {
	if len(events) == 0 && len(failures) == 0 && !r.mail.AlwaysSend {
		r.logger.Info("no updates, no summary sent")
		return 0, nil
	}

	if r.mail.Recipient == "" {
		return 0, fmt.Errorf("%w: no summary recipient configured", domain.ErrConfig)
	}

	msg := domain.Mail{
		To:      r.mail.Recipient,
		Subject: fmt.Sprintf("[sitewatch] %d changed, %d failed", len(events), len(failures)),
		Body:    broadcastBody(now, events, failures),
	}

	if err := r.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, domain.ErrConfig) {
			return 0, err
		}
		r.logger.Error("summary send failed", "recipient", msg.To, "error", err)
		return 0, nil
	}
	return 1, nil
}

func (r *Runner) notifySubscribers(ctx context.Context, now time.Time, events []domain.ChangeEvent) (int, error) {
	if len(events) == 0 {
		r.logger.Info("no updates, no mail sent")
		return 0, nil
	}
	if r.subs == nil {
		return 0, fmt.Errorf("%w: subscribers mode without subscription source", domain.ErrConfig)
	}

	subscribers, err := r.subs.Resolve(ctx)
	if err != nil {
		return 0, err
	}

	// recipient -> label -> urls, one message per recipient holding only
	// the labels that recipient subscribed to.
	perRecipient := map[string]map[string][]string{}
	for _, ev := range events {
		for recipient := range subscribers[ev.Label] {
			if perRecipient[recipient] == nil {
				perRecipient[recipient] = map[string][]string{}
			}
			perRecipient[recipient][ev.Label] = append(perRecipient[recipient][ev.Label], ev.URL)
		}
	}

	if len(perRecipient) == 0 {
		r.logger.Info("updates exist, but no subscribers matched", "changed", len(events))
		return 0, nil
	}

	recipients := make([]string, 0, len(perRecipient))
	for recipient := range perRecipient {
		recipients = append(recipients, recipient)
	}
	sort.Strings(recipients)

	sent := 0
	for _, recipient := range recipients {
		labels := perRecipient[recipient]
		msg := domain.Mail{
			To:      recipient,
			Subject: fmt.Sprintf("[sitewatch] %d source(s) updated", len(labels)),
			Body:    subscriberBody(now, labels),
		}
		if err := r.mailer.Send(ctx, msg); err != nil {
			if errors.Is(err, domain.ErrConfig) {
				return sent, err
			}
			r.logger.Error("send failed", "recipient", recipient, "error", err)
			continue
		}
		sent++
		r.logger.Info("mail sent", "recipient", recipient, "labels", len(labels))
	}
	return sent, nil
}

func broadcastBody(now time.Time, events []domain.ChangeEvent, failures []failure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run summary (%s)\n\n", now.Format("2006-01-02 15:04"))

	if len(events) == 0 {
		b.WriteString("No changes detected.\n")
	} else {
		fmt.Fprintf(&b, "Changed sources (%d):\n", len(events))
		for _, ev := range events {
			label := ev.Label
			if label == "" {
				label = hostOf(ev.URL)
			}
			fmt.Fprintf(&b, "- %s\n  %s\n", label, ev.URL)
		}
	}

	if len(failures) > 0 {
		shown := len(failures)
		if shown > maxFailurePreview {
			shown = maxFailurePreview
		}
		fmt.Fprintf(&b, "\nFailures (%d of %d shown):\n", shown, len(failures))
		for _, f := range failures[:shown] {
			fmt.Fprintf(&b, "- %s %s: %s\n", f.label, f.url, f.err)
		}
	}

	return b.String()
}

func subscriberBody(now time.Time, labels map[string][]string) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Updates detected for your subscribed sources (%s):\n", now.Format("2006-01-02 15:04"))
	for _, name := range names {
		fmt.Fprintf(&b, "\n[%s]\n", name)
		for _, u := range labels[name] {
			fmt.Fprintf(&b, "- %s\n  %s\n", hostOf(u), u)
		}
	}
	b.WriteString("\nPlease verify against the official site before acting on this notice.\n")
	return b.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
