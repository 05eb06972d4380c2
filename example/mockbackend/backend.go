// Package mockbackend is a simulated training backend for trying pulsefeed
// without hardware.
//
// It serves the three event streams and the control routes at their default
// paths. Metrics are only emitted between start and stop, so a stopped
// collector shows up as a silent stream that the client keeps reconnecting.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/pulsefeed"
)

// Settings mirrors the backend's settings document.
type Settings struct {
	Age                         int     `json:"age"`
	SpeedWheelCircumferenceM    float64 `json:"speed_wheel_circumference_m"`
	DistanceWheelCircumferenceM float64 `json:"distance_wheel_circumference_m"`
}

// Backend holds the simulated collector and workout state.
type Backend struct {
	tick   time.Duration
	logger *slog.Logger

	mu             sync.Mutex
	metricsRunning bool
	distance       float64
	settings       Settings
	intervals      []pulsefeed.Interval
	workoutStarted time.Time
	workoutRunning bool
}

// New creates a Backend that emits one event per stream every tick.
func New(tick time.Duration, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		tick:   tick,
		logger: logger,
		settings: Settings{
			Age:                         35,
			SpeedWheelCircumferenceM:    2.105,
			DistanceWheelCircumferenceM: 2.105,
		},
		intervals: []pulsefeed.Interval{
			{Name: "warmup", Seconds: 60},
			{Name: "sprint", Seconds: 20},
			{Name: "recover", Seconds: 40},
		},
	}
}

// Handler returns the backend's routes.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /metrics/stream", b.stream(b.metricsEvent))
	mux.HandleFunc("GET /metrics/devices/stream", b.stream(b.devicesEvent))
	mux.HandleFunc("GET /workout/stream", b.stream(b.workoutEvent))

	mux.HandleFunc("POST /metrics/start", b.command("metrics started", func() {
		b.metricsRunning = true
	}))
	mux.HandleFunc("POST /metrics/stop", b.command("metrics stopped", func() {
		b.metricsRunning = false
	}))
	mux.HandleFunc("POST /workout/start", b.command("workout started", func() {
		b.workoutStarted = time.Now()
		b.workoutRunning = true
	}))
	mux.HandleFunc("POST /workout/stop", b.command("workout stopped", func() {
		b.workoutRunning = false
	}))

	mux.HandleFunc("GET /metrics/settings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		s := b.settings
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, s)
	})
	mux.HandleFunc("POST /metrics/settings", func(w http.ResponseWriter, r *http.Request) {
		var s Settings
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		b.mu.Lock()
		b.settings = s
		b.mu.Unlock()
		b.logger.Info("settings updated", "age", s.Age)
		writeJSON(w, http.StatusOK, s)
	})
	mux.HandleFunc("GET /workout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		intervals := append([]pulsefeed.Interval{}, b.intervals...)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, intervals)
	})
	mux.HandleFunc("POST /workout", func(w http.ResponseWriter, r *http.Request) {
		var intervals []pulsefeed.Interval
		if err := json.NewDecoder(r.Body).Decode(&intervals); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		b.mu.Lock()
		running := b.workoutRunning
		if !running {
			b.intervals = intervals
		}
		b.mu.Unlock()
		if running {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "workout is running"})
			return
		}
		b.logger.Info("workout replaced", "intervals", len(intervals))
		writeJSON(w, http.StatusOK, intervals)
	})

	return mux
}

// command handles a parameterless POST that mutates state under the lock.
func (b *Backend) command(msg string, apply func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		apply()
		b.mu.Unlock()
		b.logger.Info(msg)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// stream writes next's payload every tick until the client goes away.
// A tick where next reports false sends nothing.
func (b *Backend) stream(next func() (any, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(b.tick)
		defer ticker.Stop()

		for {
			if payload, ok := next(); ok {
				data, err := json.Marshal(payload)
				if err != nil {
					b.logger.Error("failed to encode event", "path", r.URL.Path, "error", err)
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			}

			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (b *Backend) metricsEvent() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.metricsRunning {
		return nil, false
	}

	speed := 28 + rand.Float64()*6
	b.distance += speed / 3.6 * b.tick.Seconds()
	hr := 130 + rand.Intn(40)
	maxHR := 220 - b.settings.Age

	return map[string]any{
		string(pulsefeed.MetricPower):            180 + rand.Intn(120),
		string(pulsefeed.MetricSpeed):            speed,
		string(pulsefeed.MetricCadence):          85 + rand.Intn(15),
		string(pulsefeed.MetricDistance):         b.distance,
		string(pulsefeed.MetricHeartRate):        hr,
		string(pulsefeed.MetricHeartRatePercent): float64(hr) / float64(maxHR) * 100,
		string(pulsefeed.MetricIsRunning):        true,
		string(pulsefeed.MetricLastSensorName):   "Power Meter",
	}, true
}

func (b *Backend) devicesEvent() (any, bool) {
	return []pulsefeed.Device{
		{DeviceID: 1201, DeviceType: 11, Name: "Power Meter"},
		{DeviceID: 3344, DeviceType: 120, Name: "Heart Rate Strap"},
	}, true
}

func (b *Backend) workoutEvent() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.workoutRunning {
		return nil, false
	}
	return progress(b.intervals, time.Since(b.workoutStarted).Seconds())
}

// progress locates elapsed seconds within the repeating interval list.
func progress(intervals []pulsefeed.Interval, elapsed float64) (any, bool) {
	var round float64
	for _, iv := range intervals {
		round += float64(iv.Seconds)
	}
	if round == 0 {
		return nil, false
	}

	roundNumber := int(elapsed/round) + 1
	offset := elapsed - float64(roundNumber-1)*round
	for _, iv := range intervals {
		if offset < float64(iv.Seconds) {
			return map[string]any{
				"interval":         iv,
				"time_spent":       offset,
				"time_remaining":   float64(iv.Seconds) - offset,
				"total_time_spent": elapsed,
				"round_number":     roundNumber,
				"is_running":       true,
			}, true
		}
		offset -= float64(iv.Seconds)
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
