package app

import (
	"context"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/session"
	"gocv.io/x/gocv"
)

// runPipeline is the main detection loop that processes frames from the camera.
// It manages the state transitions between idle and active modes based on motion detection.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. On motion detected, switch to active mode (ActiveFPS)
// 3. Run hand detection and step the session with the hands
// 4. After IdleTimeout without motion, switch back to idle mode and drop the hands
func (a *App) runPipeline(ctx context.Context) {
	p := a.cfg.Pipeline
	activeMode := false
	lastMotionTime := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(p.IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}
			a.storeJPEG(frame)

			motionDetected, _ := a.motion.Detect(frame)
			now := time.Now()

			if motionDetected {
				lastMotionTime = now
				if !activeMode {
					activeMode = true
					a.setActive(true)
					a.camera.SetFPS(p.ActiveFPS)
					ticker.Reset(time.Second / time.Duration(p.ActiveFPS))
					log.Println("Switched to active mode")
				}
			} else if activeMode && now.Sub(lastMotionTime) > p.IdleTimeout {
				activeMode = false
				a.setActive(false)
				a.camera.SetFPS(p.IdleFPS)
				ticker.Reset(time.Second / time.Duration(p.IdleFPS))
				// Hands are not tracked while idle
				a.Process(session.Observation{Timestamp: now})
				log.Println("Switched to idle mode")
			}

			if !activeMode {
				frame.Close()
				continue
			}

			hands, err := a.detector.Detect(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			a.Process(session.Observation{Hands: hands, Timestamp: now})
		}
	}
}

// runIngest steps the session with observations from the landmark feed.
func (a *App) runIngest(ctx context.Context, frames <-chan session.Observation) {
	a.setActive(true)
	defer a.setActive(false)

	for {
		select {
		case <-ctx.Done():
			return
		case obs, ok := <-frames:
			if !ok {
				return
			}
			if !a.IsEnabled() {
				continue
			}
			a.Process(obs)
		}
	}
}

// runRender ticks the scene and offers snapshots to clients while the grab
// mode is active. Snapshots are dropped when the broadcast budget is spent.
func (a *App) runRender(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.Pipeline.RenderHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if a.session.Mode() != session.ModeGrab {
				continue
			}
			a.scene.Tick(now)
			if a.publisher != nil {
				snap := a.scene.Snapshot()
				a.publisher.Offer(Message{Type: MessageScene, Mode: session.ModeGrab, Scene: &snap})
			}
		}
	}
}

func (a *App) setActive(active bool) {
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()
}

// storeJPEG keeps the frame as the latest image for the MJPEG stream.
func (a *App) storeJPEG(frame *gocv.Mat) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame,
		[]int{int(gocv.IMWriteJpegQuality), a.cfg.Server.StreamQuality})
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.mu.Lock()
	a.jpeg = data
	a.jpegSeq++
	a.mu.Unlock()
}
