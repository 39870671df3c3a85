package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/observability"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/timectrl"
	"gopkg.in/yaml.v3"
)

// LastRouter as simulation.destination selects the highest router id.
const LastRouter = -1

var ErrPortConflict = errors.New("listen port conflict")

// Config is the netsim configuration file.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Transfer   TransferConfig   `yaml:"transfer"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Render     RenderConfig     `yaml:"render"`
	Status     StatusConfig     `yaml:"status"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// SimulationConfig describes the network and its churn.
type SimulationConfig struct {
	Nodes               int     `yaml:"nodes"`
	Radius              float64 `yaml:"radius"`
	Source              int     `yaml:"source"`
	Destination         int     `yaml:"destination"`
	FailureProbability  float64 `yaml:"failure_probability"`
	RecoveryProbability float64 `yaml:"recovery_probability"`
	Seed                int64   `yaml:"seed"` // 0 seeds from the clock
	ShuffleChannels     bool    `yaml:"shuffle_channels"`

	// LayoutFile names a JSON router layout used instead of random
	// placement. Its router count must equal Nodes.
	LayoutFile string `yaml:"layout_file"`
}

// TransferConfig parameterises every transfer the controller starts.
type TransferConfig struct {
	WindowSize    int `yaml:"window_size"`
	MessageSize   int `yaml:"message_size"`
	TimeoutTicks  int `yaml:"timeout_ticks"`
	MessageCount  int `yaml:"message_count"`
	AckDelayTicks int `yaml:"ack_delay_ticks"`
}

// RuntimeConfig controls pacing and termination.
type RuntimeConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	Mode           string        `yaml:"mode"`
	MaxTicks       uint64        `yaml:"max_ticks"`
	StopOnComplete bool          `yaml:"stop_on_complete"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// RenderConfig selects the frame consumers.
type RenderConfig struct {
	Console   bool   `yaml:"console"`
	WebSocket bool   `yaml:"websocket"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// DefaultConfig returns the configuration used when no file is given:
// 50 routers, the first sending to the last, paced at about 60 ticks per
// second.
func DefaultConfig() *Config {
	transfer := arq.DefaultConfig()
	return &Config{
		Simulation: SimulationConfig{
			Nodes:               50,
			Radius:              0.4,
			Source:              0,
			Destination:         LastRouter,
			FailureProbability:  0.01,
			RecoveryProbability: 0.01,
		},
		Transfer: TransferConfig{
			WindowSize:    transfer.WindowSize,
			MessageSize:   transfer.MessageSize,
			TimeoutTicks:  transfer.TimeoutTicks,
			MessageCount:  transfer.MessageCount,
			AckDelayTicks: transfer.AckDelayTicks,
		},
		Runtime: RuntimeConfig{
			TickInterval: 16 * time.Millisecond,
			Mode:         "realtime",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
			Path:   "/metrics",
		},
		Render: RenderConfig{
			Console: true,
			Listen:  ":8080",
			Path:    "/frames",
		},
		Status: StatusConfig{
			Listen: ":50051",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: observability.DefaultServiceName,
			SampleRatio: 1.0,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays LOG_LEVEL, LOG_FORMAT and the NETSIM_TRACING_* variables.
func (c *Config) ApplyEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
	if raw := os.Getenv("NETSIM_SEED"); raw != "" {
		if seed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.Simulation.Seed = seed
		}
	}
	tracing := observability.ApplyTracingEnv(c.TracingConfig())
	c.Tracing = TracingConfig{
		Enabled:     tracing.Enabled,
		Exporter:    tracing.Exporter,
		Endpoint:    tracing.Endpoint,
		ServiceName: tracing.ServiceName,
		SampleRatio: tracing.SampleRatio,
	}
}

// Validate checks every section. Simulation and transfer rules are the
// ones the controller enforces; the rest guard the process surfaces.
func (c *Config) Validate() error {
	if c.Simulation.Destination < LastRouter {
		return fmt.Errorf("simulation.destination: %w: %d", sim.ErrEndpointOutOfRange, c.Simulation.Destination)
	}
	if err := c.SimConfig().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	mode, err := timectrl.ParseMode(c.Runtime.Mode)
	if err != nil {
		return fmt.Errorf("runtime.mode: %w", err)
	}
	if mode == timectrl.RealTime && c.Runtime.TickInterval <= 0 {
		return fmt.Errorf("runtime.tick_interval must be positive in realtime mode")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter %q is not one of stdout, otlp", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}

	return c.validateListeners()
}

func (c *Config) validateListeners() error {
	type listener struct {
		name    string
		enabled bool
		addr    string
	}
	listeners := []listener{
		{"metrics.listen", c.Metrics.Enabled, c.Metrics.Listen},
		{"render.listen", c.Render.WebSocket, c.Render.Listen},
		{"status.listen", c.Status.Enabled, c.Status.Listen},
	}

	ports := make(map[int]string)
	for _, l := range listeners {
		if !l.enabled {
			continue
		}
		port, err := parsePort(l.addr)
		if err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
		if port == 0 {
			continue
		}
		if existing, ok := ports[port]; ok {
			return fmt.Errorf("%w: %s and %s both use port %d", ErrPortConflict, existing, l.name, port)
		}
		ports[port] = l.name
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	if c.Render.WebSocket && !strings.HasPrefix(c.Render.Path, "/") {
		return fmt.Errorf("render.path %q must start with /", c.Render.Path)
	}
	return nil
}

func parsePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", portStr)
	}
	return port, nil
}

// DestinationID resolves LastRouter to the highest router id.
func (c *Config) DestinationID() int {
	if c.Simulation.Destination == LastRouter {
		return c.Simulation.Nodes - 1
	}
	return c.Simulation.Destination
}

// SimConfig maps the file onto the controller configuration.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		NodeCount:           c.Simulation.Nodes,
		Radius:              c.Simulation.Radius,
		Source:              c.Simulation.Source,
		Destination:         c.DestinationID(),
		FailureProbability:  c.Simulation.FailureProbability,
		RecoveryProbability: c.Simulation.RecoveryProbability,
		ShuffleChannels:     c.Simulation.ShuffleChannels,
		Transfer:            c.TransferConfig(),
	}
}

// TransferConfig maps the transfer section onto arq.Config.
func (c *Config) TransferConfig() arq.Config {
	return arq.Config{
		WindowSize:    c.Transfer.WindowSize,
		MessageSize:   c.Transfer.MessageSize,
		TimeoutTicks:  c.Transfer.TimeoutTicks,
		MessageCount:  c.Transfer.MessageCount,
		AckDelayTicks: c.Transfer.AckDelayTicks,
	}
}

// Mode returns the parsed runtime mode. Call after Validate.
func (c *Config) Mode() timectrl.Mode {
	mode, _ := timectrl.ParseMode(c.Runtime.Mode)
	return mode
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ExampleYAML returns an annotated configuration file with the defaults.
func ExampleYAML() string {
	return `# netsim configuration
# =============================================================================

simulation:
  nodes: 50                   # routers, ids 0..nodes-1
  radius: 0.4                 # link range in the [-1, 1] plane
  source: 0
  destination: -1             # -1 selects the last router
  failure_probability: 0.01   # chance per tick that one router fails
  recovery_probability: 0.01  # chance per tick that one failed router recovers
  seed: 0                     # 0 seeds from the clock
  shuffle_channels: false     # deliver each batch in random order
  layout_file: ""             # JSON {"routers": [{"id", "x", "y"}]}; empty places routers at random

transfer:
  window_size: 16
  message_size: 32            # bytes
  timeout_ticks: 12
  message_count: 512
  ack_delay_ticks: 0

runtime:
  tick_interval: 16ms
  mode: realtime              # realtime | accelerated
  max_ticks: 0                # 0 runs until interrupted
  stop_on_complete: false

log:
  level: info                 # debug | info | warn | error
  format: text                # text | json

metrics:
  enabled: false
  listen: ":9090"
  path: /metrics

render:
  console: true               # log each frame at debug level
  websocket: false            # stream frames as JSON
  listen: ":8080"
  path: /frames

status:
  enabled: false              # gRPC health service
  listen: ":50051"

tracing:
  enabled: false
  exporter: stdout            # stdout | otlp
  endpoint: ""
  service_name: netsim
  sample_ratio: 1.0
`
}

// WriteExample writes ExampleYAML to path.
func WriteExample(path string) error {
	return os.WriteFile(path, []byte(ExampleYAML()), 0o644)
}
