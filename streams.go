package pulsefeed

import (
	"encoding/json"
	"fmt"
)

// MetricKey names a field of the metrics stream payload.
type MetricKey string

// Keys emitted by the metrics backend. The map is open: unknown keys are
// kept as received.
const (
	MetricPower              MetricKey = "power"
	MetricMAPower            MetricKey = "ma_power"
	MetricSpeed              MetricKey = "speed"
	MetricMASpeed            MetricKey = "ma_speed"
	MetricCadence            MetricKey = "cadence"
	MetricMACadence          MetricKey = "ma_cadence"
	MetricDistance           MetricKey = "distance"
	MetricMADistance         MetricKey = "ma_distance"
	MetricHeartRate          MetricKey = "heart_rate"
	MetricMAHeartRate        MetricKey = "ma_heart_rate"
	MetricHeartRatePercent   MetricKey = "heart_rate_percent"
	MetricMAHeartRatePercent MetricKey = "ma_heart_rate_percent"
	MetricZoneName           MetricKey = "zone_name"
	MetricMAZoneName         MetricKey = "ma_zone_name"
	MetricZoneDescription    MetricKey = "zone_description"
	MetricMAZoneDescription  MetricKey = "ma_zone_description"
	MetricIsRunning          MetricKey = "is_running"
	MetricLastSensorUpdate   MetricKey = "last_sensor_update"
	MetricLastSensorName     MetricKey = "last_sensor_name"
)

// Metrics is the accumulated metrics state: metric key to last received value.
//
// Values are whatever the JSON decoder produced (float64, string, bool, nil,
// nested maps). A Metrics value obtained from a stream is a snapshot and
// must not be modified.
type Metrics map[string]any

// Float returns the numeric value for key. ok is false if the key is absent,
// null or not a number.
func (m Metrics) Float(key MetricKey) (v float64, ok bool) {
	v, ok = m[string(key)].(float64)
	return v, ok
}

// String returns the string value for key. ok is false if the key is
// absent, null or not a string.
func (m Metrics) String(key MetricKey) (v string, ok bool) {
	v, ok = m[string(key)].(string)
	return v, ok
}

// merge returns a new map holding m overlaid with patch. Keys are never removed.
func (m Metrics) merge(patch Metrics) Metrics {
	out := make(Metrics, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Device is one sensor known to the backend.
type Device struct {
	DeviceID   int    `json:"device_id"`
	DeviceType int    `json:"device_type"`
	Name       string `json:"name"`
}

// Interval is one segment of a workout.
type Interval struct {
	Name    string `json:"name"`
	Seconds int    `json:"seconds"`
}

// Workout is the progress of the running interval workout.
//
// Every field is nil until the stream has reported it. Pointers in a
// Workout obtained from a stream are shared between snapshots and must not
// be written through.
type Workout struct {
	Interval       *Interval `json:"interval"`
	TimeSpent      *float64  `json:"time_spent"`
	TimeRemaining  *float64  `json:"time_remaining"`
	TotalTimeSpent *float64  `json:"total_time_spent"`
	RoundNumber    *int      `json:"round_number"`
	IsRunning      *bool     `json:"is_running"`
}

// workoutPatch is a decoded workout message that remembers which keys were
// present, so that absent keys leave the state alone while an explicit null
// clears a field.
type workoutPatch struct {
	present map[string]bool
	values  Workout
}

// UnmarshalJSON implements json.Unmarshaler. Unknown keys are ignored; a
// known key with a value of the wrong type rejects the whole message.
func (p *workoutPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		return fmt.Errorf("workout payload: %w", err)
	}
	p.present = make(map[string]bool, len(raw))
	for k := range raw {
		p.present[k] = true
	}
	return nil
}

// merge returns w with the fields present in p replaced.
func (w Workout) merge(p workoutPatch) Workout {
	if p.present["interval"] {
		w.Interval = p.values.Interval
	}
	if p.present["time_spent"] {
		w.TimeSpent = p.values.TimeSpent
	}
	if p.present["time_remaining"] {
		w.TimeRemaining = p.values.TimeRemaining
	}
	if p.present["total_time_spent"] {
		w.TotalTimeSpent = p.values.TotalTimeSpent
	}
	if p.present["round_number"] {
		w.RoundNumber = p.values.RoundNumber
	}
	if p.present["is_running"] {
		w.IsRunning = p.values.IsRunning
	}
	return w
}

// MetricsStream subscribes to the metrics stream and merges every message
// into a [Metrics] map: keys are added or overwritten, never removed.
//
// The embedded [Session] provides Start, Stop, Connected and LastUpdated.
type MetricsStream struct {
	*Session
	metrics *Subject[Metrics]
}

// NewMetricsStream binds a [MetricsStream] to ep's metrics stream URL.
func NewMetricsStream(ep Endpoints, opts ...SessionOption) (*MetricsStream, error) {
	ms := &MetricsStream{metrics: NewSubject(Metrics{})}

	session, err := NewSession(ep.URL(RouteMetricsStream), ms.apply,
		append([]SessionOption{WithName(StreamMetrics)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("metrics stream: %w", err)
	}
	ms.Session = session
	return ms, nil
}

// Metrics returns the observable metrics state.
func (ms *MetricsStream) Metrics() Observable[Metrics] {
	return ms.metrics
}

func (ms *MetricsStream) apply(patch Metrics) {
	ms.metrics.Update(func(cur Metrics) Metrics {
		return cur.merge(patch)
	})
}

// DevicesStream subscribes to the devices stream. Every message replaces
// the device list wholesale.
type DevicesStream struct {
	*Session
	devices *Subject[[]Device]
}

// NewDevicesStream binds a [DevicesStream] to ep's devices stream URL.
func NewDevicesStream(ep Endpoints, opts ...SessionOption) (*DevicesStream, error) {
	ds := &DevicesStream{devices: NewSubject([]Device{})}

	session, err := NewSession(ep.URL(RouteDevicesStream), ds.apply,
		append([]SessionOption{WithName(StreamDevices)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("devices stream: %w", err)
	}
	ds.Session = session
	return ds, nil
}

// Devices returns the observable device list.
func (ds *DevicesStream) Devices() Observable[[]Device] {
	return ds.devices
}

func (ds *DevicesStream) apply(devices []Device) {
	ds.devices.Set(devices)
}

// WorkoutStream subscribes to the workout stream and shallow-merges every
// message into a [Workout]: fields absent from a message keep their value.
type WorkoutStream struct {
	*Session
	workout *Subject[Workout]
}

// NewWorkoutStream binds a [WorkoutStream] to ep's workout stream URL.
func NewWorkoutStream(ep Endpoints, opts ...SessionOption) (*WorkoutStream, error) {
	ws := &WorkoutStream{workout: NewSubject(Workout{})}

	session, err := NewSession(ep.URL(RouteWorkoutStream), ws.apply,
		append([]SessionOption{WithName(StreamWorkout)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("workout stream: %w", err)
	}
	ws.Session = session
	return ws, nil
}

// Workout returns the observable workout state.
func (ws *WorkoutStream) Workout() Observable[Workout] {
	return ws.workout
}

func (ws *WorkoutStream) apply(patch workoutPatch) {
	ws.workout.Update(func(cur Workout) Workout {
		return cur.merge(patch)
	})
}
