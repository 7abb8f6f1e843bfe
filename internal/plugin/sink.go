package plugin

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/session"
)

// Actions are the effect kinds offered to plugins. Cursor moves are left
// out because they arrive on every frame.
var Actions = []session.Kind{
	session.KindClick,
	session.KindScroll,
	session.KindFocus,
	session.KindBlur,
}

type job struct {
	plugin *Plugin
	req    Request
}

// Sink hands cursor effects to the plugins subscribed to their kind. Requests
// are queued and executed one at a time by Run, so Dispatch never waits on
// a subprocess.
type Sink struct {
	manager  *Manager
	executor *Executor
	queue    chan job
	dropped  atomic.Uint64
}

// NewSink creates a Sink holding at most queue pending requests.
func NewSink(manager *Manager, executor *Executor, queue int) *Sink {
	if queue < 1 {
		queue = 1
	}
	return &Sink{
		manager:  manager,
		executor: executor,
		queue:    make(chan job, queue),
	}
}

// Dispatch queues one request per subscribed plugin for each effect of a
// dispatched kind and returns how many were queued. The gesture is the
// hand's matched pose, or its label when no pose matched. Requests that do
// not fit in the queue are dropped.
func (s *Sink) Dispatch(state session.State, effects []session.Effect) int {
	queued := 0
	for _, e := range session.Filter(effects, Actions...) {
		action := string(e.Kind)
		plugins := s.manager.Subscribers(action)
		if len(plugins) == 0 {
			continue
		}

		params, err := json.Marshal(e)
		if err != nil {
			log.Printf("Failed to encode %s effect: %v", action, err)
			continue
		}
		gesture := ""
		if e.Slot >= 0 && e.Slot < len(state.Hands) {
			hs := state.Hands[e.Slot]
			gesture = hs.Pose
			if gesture == "" {
				gesture = string(hs.Label)
			}
		}

		for _, p := range plugins {
			req := Request{
				Action:  action,
				Gesture: gesture,
				Config:  p.Manifest.Config,
				Params:  params,
			}
			select {
			case s.queue <- job{plugin: p, req: req}:
				queued++
			default:
				if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
					log.Printf("Plugin queue full, dropped %d requests", n)
				}
			}
		}
	}
	return queued
}

// Dropped returns how many requests were dropped because the queue was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Run executes queued requests until ctx is done.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			resp, err := s.executor.Execute(ctx, j.plugin, &j.req)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					log.Printf("Plugin %s on %s: %v", j.plugin.Manifest.Name, j.req.Action, err)
				}
			case !resp.Success:
				log.Printf("Plugin %s on %s reported: %s", j.plugin.Manifest.Name, j.req.Action, resp.Error)
			}
		}
	}
}
