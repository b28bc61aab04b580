// Package config handles environment variable loading for ports, the
// robot API endpoint, data paths, and queue tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP server port for the control plane
	HTTPPort int

	// Base URL of the robot's vendor API
	RobotAPIURL string

	// Shared secret sent on every vendor API request
	RobotAPISecret string

	// Bearer token required on mutating operator endpoints; empty
	// disables inbound auth
	OperatorToken string

	// Directory holding the mission snapshot and audit log
	DataDir string

	// Identifier stamped on created missions
	RobotID string

	// Scheduled queue-processing period
	QueueInterval time.Duration

	// Connectivity-retry budget per step
	StepMaxRetries int

	// Backward alignment nudge before jack_up
	JackNudge bool

	// Request rate limit for task-intent endpoints; 0 disables
	RateLimitRPS   float64
	RateLimitBurst int

	// OTLP collector endpoint for traces
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	robotURL := os.Getenv("ROBOT_API_URL")
	if robotURL == "" {
		return nil, fmt.Errorf("robot_api_url is required (env: ROBOT_API_URL)")
	}

	port := 6161
	if s := os.Getenv("PORT"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	robotID := os.Getenv("ROBOT_ID")
	if robotID == "" {
		robotID = "robot-1"
	}

	queueInterval := 5 * time.Second
	if s := os.Getenv("QUEUE_INTERVAL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid QUEUE_INTERVAL: %w", err)
		}
		queueInterval = d
	}

	maxRetries := 3
	if s := os.Getenv("STEP_MAX_RETRIES"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid STEP_MAX_RETRIES: %w", err)
		}
		maxRetries = n
	}

	jackNudge := false
	if s := os.Getenv("JACK_NUDGE"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid JACK_NUDGE: %w", err)
		}
		jackNudge = b
	}

	rateRPS := 0.0
	if s := os.Getenv("RATE_LIMIT_RPS"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		rateRPS = f
	}

	rateBurst := 10
	if s := os.Getenv("RATE_LIMIT_BURST"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		rateBurst = n
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	return &Config{
		HTTPPort:       port,
		RobotAPIURL:    robotURL,
		RobotAPISecret: os.Getenv("ROBOT_API_SECRET"),
		OperatorToken:  os.Getenv("OPERATOR_TOKEN"),
		DataDir:        dataDir,
		RobotID:        robotID,
		QueueInterval:  queueInterval,
		StepMaxRetries: maxRetries,
		JackNudge:      jackNudge,
		RateLimitRPS:   rateRPS,
		RateLimitBurst: rateBurst,
		OTELEndpoint:   otelEndpoint,
	}, nil
}
