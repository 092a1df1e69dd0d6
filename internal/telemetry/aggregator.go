package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gitpusher/pushkit/internal/client"
	"github.com/gitpusher/pushkit/internal/metrics"
	"github.com/gitpusher/pushkit/internal/models"
)

// Source is the slice of the API the aggregator depends on.
type Source interface {
	Stream(ctx context.Context, path string) (<-chan client.StreamEvent, error)
	TrafficStats(ctx context.Context) (models.AggregateSnapshot, error)
	AdminOnline(ctx context.Context) (models.Presence, error)
}

// Config tunes the aggregator. Zero values take the documented defaults.
type Config struct {
	AICapacity       int
	TrafficCapacity  int
	StatsInterval    time.Duration
	PresenceInterval time.Duration
	// MaxStreamRetries bounds reconnect attempts per stream. Once
	// exhausted the feed stays stopped until the aggregator restarts.
	MaxStreamRetries int
	PollTimeout      time.Duration
	Verbose          bool
}

func (c *Config) setDefaults() {
	if c.AICapacity <= 0 {
		c.AICapacity = AIFeedCapacity
	}
	if c.TrafficCapacity <= 0 {
		c.TrafficCapacity = TrafficFeedCapacity
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = StatsPollInterval
	}
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = PresencePollInterval
	}
	if c.MaxStreamRetries <= 0 {
		c.MaxStreamRetries = 5
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 4 * time.Second
	}
}

// View is a render-safe copy of the aggregator's state.
type View struct {
	AISamples      []models.RealtimeSample
	AILikelihood   float64
	TrafficSamples []models.RealtimeSample
	Stats          models.AggregateSnapshot
	Presence       models.Presence
	Health         map[Component]Health
}

// event is the tagged union delivered to the aggregator loop. Exactly one
// event type mutates each field group, so independent cadences can never
// overwrite each other's state.
type event interface{ isEvent() }

type sampleEvent struct {
	component  Component
	sample     models.RealtimeSample
	likelihood float64
	hasGauge   bool
}

type statsEvent struct {
	seq  uint64
	snap models.AggregateSnapshot
}

type presenceEvent struct {
	seq      uint64
	presence models.Presence
}

type healthEvent struct {
	component Component
	health    Health
}

type viewRequest struct {
	reply chan View
}

func (sampleEvent) isEvent()   {}
func (statsEvent) isEvent()    {}
func (presenceEvent) isEvent() {}
func (healthEvent) isEvent()   {}
func (viewRequest) isEvent()   {}

// Aggregator owns two stream subscriptions and two polling timers. All
// state mutation happens on a single event-loop goroutine; producers only
// ever emit events for the fields they own.
type Aggregator struct {
	cfg    Config
	source Source

	events   chan event
	loopDone chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	finalMu   sync.Mutex
	finalView View
}

// NewAggregator builds an aggregator over source.
func NewAggregator(source Source, cfg Config) *Aggregator {
	cfg.setDefaults()
	return &Aggregator{
		cfg:      cfg,
		source:   source,
		events:   make(chan event, 64),
		loopDone: make(chan struct{}),
	}
}

// Start launches the event loop, both stream consumers, and both pollers.
// It is a no-op after the first call.
func (a *Aggregator) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		ctx, a.cancel = context.WithCancel(ctx)

		a.wg.Add(1)
		go a.loop(ctx)

		a.wg.Add(2)
		go a.runStream(ctx, ComponentAIStream, aiStreamPath)
		go a.runStream(ctx, ComponentTrafficStream, trafficStreamPath)

		a.wg.Add(2)
		go a.pollStats(ctx)
		go a.pollPresence(ctx)
	})
}

// Stop closes both stream connections and stops both pollers, then waits
// for the loop to drain. Leaving a view without calling Stop leaks the
// connections and timers.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
	})
}

// Snapshot returns a copy of the current state. After Stop it returns the
// last state observed by the loop.
func (a *Aggregator) Snapshot(ctx context.Context) View {
	req := viewRequest{reply: make(chan View, 1)}
	select {
	case a.events <- req:
		select {
		case v := <-req.reply:
			return v
		case <-a.loopDone:
		case <-ctx.Done():
			return View{}
		}
	case <-a.loopDone:
	case <-ctx.Done():
		return View{}
	}
	a.finalMu.Lock()
	defer a.finalMu.Unlock()
	return a.finalView
}

// loop is the single owner of all aggregator state.
func (a *Aggregator) loop(ctx context.Context) {
	defer a.wg.Done()
	defer close(a.loopDone)

	ai := NewRing(a.cfg.AICapacity)
	traffic := NewRing(a.cfg.TrafficCapacity)
	var likelihood float64
	var stats models.AggregateSnapshot
	var presence models.Presence
	var statsSeq, presenceSeq uint64
	health := map[Component]Health{
		ComponentAIStream:      HealthDegraded,
		ComponentTrafficStream: HealthDegraded,
		ComponentStatsPoll:     HealthDegraded,
		ComponentPresencePoll:  HealthDegraded,
	}

	makeView := func() View {
		h := make(map[Component]Health, len(health))
		for k, v := range health {
			h[k] = v
		}
		return View{
			AISamples:      ai.Snapshot(),
			AILikelihood:   likelihood,
			TrafficSamples: traffic.Snapshot(),
			Stats:          stats,
			Presence:       presence,
			Health:         h,
		}
	}

	for {
		select {
		case <-ctx.Done():
			a.finalMu.Lock()
			a.finalView = makeView()
			a.finalMu.Unlock()
			return
		case e := <-a.events:
			switch ev := e.(type) {
			case sampleEvent:
				switch ev.component {
				case ComponentAIStream:
					ai.Append(ev.sample)
					if ev.hasGauge {
						likelihood = ev.likelihood
					}
					metrics.BufferSize.WithLabelValues(string(ComponentAIStream)).Set(float64(ai.Len()))
				case ComponentTrafficStream:
					traffic.Append(ev.sample)
					metrics.BufferSize.WithLabelValues(string(ComponentTrafficStream)).Set(float64(traffic.Len()))
				}
				metrics.SamplesTotal.WithLabelValues(string(ev.component)).Inc()
			case statsEvent:
				// A slow response that arrives after a newer one must not
				// overwrite it.
				if ev.seq <= statsSeq {
					metrics.StaleResponsesTotal.WithLabelValues(string(ComponentStatsPoll)).Inc()
					continue
				}
				statsSeq = ev.seq
				stats = ev.snap
				health[ComponentStatsPoll] = HealthHealthy
			case presenceEvent:
				if ev.seq <= presenceSeq {
					metrics.StaleResponsesTotal.WithLabelValues(string(ComponentPresencePoll)).Inc()
					continue
				}
				presenceSeq = ev.seq
				presence = ev.presence
				health[ComponentPresencePoll] = HealthHealthy
				if presence.Online {
					metrics.PresenceOnline.Set(1)
				} else {
					metrics.PresenceOnline.Set(0)
				}
			case healthEvent:
				health[ev.component] = ev.health
			case viewRequest:
				ev.reply <- makeView()
			}
		}
	}
}

// emit delivers an event to the loop, giving up when the aggregator is
// shutting down.
func (a *Aggregator) emit(ctx context.Context, e event) {
	select {
	case a.events <- e:
	case <-ctx.Done():
	}
}

// runStream consumes one server-sent event feed, applying the bounded
// reconnect policy: exponential backoff with jitter, at most
// MaxStreamRetries attempts, then the feed stays stopped.
func (a *Aggregator) runStream(ctx context.Context, component Component, path string) {
	defer a.wg.Done()

	backoff := NewBackoff()
	retries := 0
	for {
		if ctx.Err() != nil {
			return
		}
		events, err := a.source.Stream(ctx, path)
		if err != nil {
			a.logf("%s: stream open failed: %v", component, err)
			a.emit(ctx, healthEvent{component: component, health: HealthDegraded})
			retries++
			if retries > a.cfg.MaxStreamRetries {
				a.emit(ctx, healthEvent{component: component, health: HealthStopped})
				a.logf("%s: retries exhausted, feed stopped", component)
				return
			}
			metrics.StreamReconnectsTotal.WithLabelValues(string(component)).Inc()
			select {
			case <-time.After(backoff.Next()):
			case <-ctx.Done():
				return
			}
			continue
		}

		a.emit(ctx, healthEvent{component: component, health: HealthHealthy})
		backoff.Reset()
		retries = 0

		for raw := range events {
			e, err := a.parseSample(component, raw.Data)
			if err != nil {
				a.logf("%s: %v", component, err)
				continue
			}
			a.emit(ctx, e)
		}

		// Stream ended server-side; reconnect under the same bounded
		// policy.
		if ctx.Err() != nil {
			return
		}
		a.emit(ctx, healthEvent{component: component, health: HealthDegraded})
		retries++
		if retries > a.cfg.MaxStreamRetries {
			a.emit(ctx, healthEvent{component: component, health: HealthStopped})
			a.logf("%s: retries exhausted, feed stopped", component)
			return
		}
		metrics.StreamReconnectsTotal.WithLabelValues(string(component)).Inc()
		select {
		case <-time.After(backoff.Next()):
		case <-ctx.Done():
			return
		}
	}
}

func (a *Aggregator) parseSample(component Component, data []byte) (sampleEvent, error) {
	switch component {
	case ComponentAIStream:
		sample, likelihood, err := parseAIMessage(data)
		if err != nil {
			return sampleEvent{}, err
		}
		return sampleEvent{component: component, sample: sample, likelihood: likelihood, hasGauge: true}, nil
	case ComponentTrafficStream:
		sample, err := parseTrafficMessage(data)
		if err != nil {
			return sampleEvent{}, err
		}
		return sampleEvent{component: component, sample: sample}, nil
	}
	return sampleEvent{}, fmt.Errorf("unknown stream component %s", component)
}

// pollStats fetches traffic aggregates on a fixed cadence. Each request is
// tagged with an increasing sequence number at issue time so the loop can
// discard responses that lost the race against a newer one.
func (a *Aggregator) pollStats(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.StatsInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			s := seq
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout)
				defer cancel()
				snap, err := a.source.TrafficStats(opCtx)
				if err != nil {
					a.logf("stats poll failed: %v", err)
					a.emit(ctx, healthEvent{component: ComponentStatsPoll, health: HealthDegraded})
					return
				}
				a.emit(ctx, statsEvent{seq: s, snap: snap})
			}()
		}
	}
}

// pollPresence maintains the operator presence indicator on its own
// cadence, independent of the stats poll.
func (a *Aggregator) pollPresence(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.PresenceInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			s := seq
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout)
				defer cancel()
				presence, err := a.source.AdminOnline(opCtx)
				if err != nil {
					a.logf("presence poll failed: %v", err)
					a.emit(ctx, healthEvent{component: ComponentPresencePoll, health: HealthDegraded})
					return
				}
				a.emit(ctx, presenceEvent{seq: s, presence: presence})
			}()
		}
	}
}

func (a *Aggregator) logf(format string, args ...interface{}) {
	if a.cfg.Verbose {
		log.Printf("[telemetry] "+format, args...)
	}
}
