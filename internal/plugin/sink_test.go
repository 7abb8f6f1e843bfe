package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
)

// recordingScript appends each request to requests.log in the plugin directory.
const recordingScript = `#!/bin/sh
cat >> requests.log
echo >> requests.log
echo '{"success":true}'
`

func readRequests(t *testing.T, path string, want int) []Request {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var reqs []Request
		if f, err := os.Open(path); err == nil {
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if len(scanner.Bytes()) == 0 {
					continue
				}
				var r Request
				if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
					break // line still being written
				}
				reqs = append(reqs, r)
			}
			f.Close()
		}
		if len(reqs) >= want || time.Now().After(deadline) {
			return reqs
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSink_Dispatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	pluginDir := writePlugin(t, tmpDir, Manifest{
		Name:       "recorder",
		Executable: "run.sh",
		Actions:    []string{"click", "scroll", "cursor"},
		Config:     json.RawMessage(`{"button":"left"}`),
	}, recordingScript)

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	sink := NewSink(manager, NewExecutor(5*time.Second), 8)

	var state session.State
	state.Hands[0].Label = gesture.LabelPinch
	state.Hands[1].Label = gesture.LabelPinch
	state.Hands[1].Pose = "ok-sign"

	effects := []session.Effect{
		{Kind: session.KindCursor, Slot: 0},
		{Kind: session.KindClick, Slot: 0},
		{Kind: session.KindFocus, Slot: 0}, // no subscriber
		{Kind: session.KindScroll, Slot: 1, Value: -0.25},
	}
	if n := sink.Dispatch(state, effects); n != 2 {
		t.Fatalf("expected 2 queued requests, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sink.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	reqs := readRequests(t, filepath.Join(pluginDir, "requests.log"), 2)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}

	if reqs[0].Action != "click" || reqs[0].Gesture != string(gesture.LabelPinch) {
		t.Errorf("expected click from PINCH, got %s from %s", reqs[0].Action, reqs[0].Gesture)
	}
	if string(reqs[0].Config) != `{"button":"left"}` {
		t.Errorf("expected manifest config, got %s", reqs[0].Config)
	}

	if reqs[1].Action != "scroll" || reqs[1].Gesture != "ok-sign" {
		t.Errorf("expected scroll from ok-sign, got %s from %s", reqs[1].Action, reqs[1].Gesture)
	}
	var params session.Effect
	if err := json.Unmarshal(reqs[1].Params, &params); err != nil {
		t.Fatalf("params are not an effect: %v", err)
	}
	if params.Kind != session.KindScroll || params.Slot != 1 || params.Value != -0.25 {
		t.Errorf("unexpected params %+v", params)
	}
}

func TestSink_QueueFull(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, Manifest{Name: "clicker", Executable: "run.sh", Actions: []string{"click"}}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	sink := NewSink(manager, NewExecutor(time.Second), 1)

	click := session.Effect{Kind: session.KindClick}
	start := time.Now()
	n := sink.Dispatch(session.State{}, []session.Effect{click, click, click})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Dispatch blocked for %v", elapsed)
	}

	if n != 1 {
		t.Errorf("expected 1 queued request, got %d", n)
	}
	if d := sink.Dropped(); d != 2 {
		t.Errorf("expected 2 dropped requests, got %d", d)
	}
}

func TestSink_NoPlugins(t *testing.T) {
	sink := NewSink(NewManager(filepath.Join(t.TempDir(), "none")), NewExecutor(time.Second), 4)
	effects := []session.Effect{{Kind: session.KindClick}, {Kind: session.KindBlur}}
	if n := sink.Dispatch(session.State{}, effects); n != 0 {
		t.Errorf("expected nothing queued, got %d", n)
	}
}
