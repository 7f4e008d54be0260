package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aquactl/aquactl/pkg/model"
)

// ConfigError indicates a malformed or invalid configuration document.
// It is always fatal at startup.
type ConfigError struct {
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("config: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ConfigDocument is the parsed, defaulted root configuration.
type ConfigDocument struct {
	Devices []model.Device
	Groups  []model.Group

	Retry model.RetryPolicy

	MonitorIntervalSec int
	MaxConcurrency     int
	ScheduleDBPath      string
	ReportDir          string
	LogDir             string
	Timezone           string
	DiscoveryEnabled   bool
}

// yamlDocument mirrors the on-disk shape (snake_case keys per spec §6).
type yamlDocument struct {
	Devices []yamlDevice `yaml:"devices"`
	Groups  []yamlGroup  `yaml:"groups"`

	Retry *yamlRetry `yaml:"retry"`

	MonitorIntervalSec int    `yaml:"monitor_interval_sec"`
	MaxConcurrency     int    `yaml:"max_concurrency"`
	ScheduleDBPath      string `yaml:"schedule_db_path"`
	ReportDir          string `yaml:"report_dir"`
	LogDir             string `yaml:"log_dir"`
	Timezone           string `yaml:"timezone"`
	DiscoveryEnabled   bool   `yaml:"discovery_enabled"`
}

type yamlDevice struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	GroupIDs    []string          `yaml:"group_ids"`
	Credentials *yamlCredentials  `yaml:"credentials"`
	ProbeSpec   *yamlProbeSpec    `yaml:"probe_spec"`
}

type yamlCredentials struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	MAC          string `yaml:"mac"`
	ShutdownHost string `yaml:"shutdown_host"`
	ShutdownPort int    `yaml:"shutdown_port"`
}

type yamlProbeSpec struct {
	Kind              string `yaml:"kind"`
	Port              int    `yaml:"port"`
	Path              string `yaml:"path"`
	ExpectStatusBelow int    `yaml:"expect_status_below"`
}

type yamlGroup struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	DeviceIDs []string `yaml:"device_ids"`
}

type yamlRetry struct {
	MaxAttempts          int     `yaml:"max_attempts"`
	BaseIntervalSec      float64 `yaml:"base_interval_sec"`
	BackoffMultiplier    float64 `yaml:"backoff_multiplier"`
	PerAttemptTimeoutSec float64 `yaml:"per_attempt_timeout_sec"`
}

// Load reads and parses the configuration document at path.
func Load(path string) (ConfigDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigDocument{}, &ConfigError{Msg: fmt.Sprintf("reading %s", path), Cause: err}
	}
	return Parse(data)
}

// Parse parses a configuration document from raw YAML bytes, applying
// defaults for every omitted key per spec §6. Unknown keys are
// rejected so a typo in an operator's config fails loudly.
func Parse(data []byte) (ConfigDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var y yamlDocument
	if err := dec.Decode(&y); err != nil {
		return ConfigDocument{}, &ConfigError{Msg: "parsing YAML", Cause: err}
	}

	doc := ConfigDocument{
		Retry:              model.DefaultRetryPolicy(),
		MonitorIntervalSec: 60,
		MaxConcurrency:     10,
		ScheduleDBPath:     "./aquactl-schedule.db",
		ReportDir:          "./reports",
		LogDir:             "./logs",
		Timezone:           "Local",
		DiscoveryEnabled:   y.DiscoveryEnabled,
	}

	if y.MonitorIntervalSec > 0 {
		doc.MonitorIntervalSec = y.MonitorIntervalSec
	}
	if y.MaxConcurrency > 0 {
		doc.MaxConcurrency = y.MaxConcurrency
	}
	if y.ScheduleDBPath != "" {
		doc.ScheduleDBPath = y.ScheduleDBPath
	}
	if y.ReportDir != "" {
		doc.ReportDir = y.ReportDir
	}
	if y.LogDir != "" {
		doc.LogDir = y.LogDir
	}
	if y.Timezone != "" {
		doc.Timezone = y.Timezone
	}

	if y.Retry != nil {
		if y.Retry.MaxAttempts > 0 {
			doc.Retry.MaxAttempts = y.Retry.MaxAttempts
		}
		if y.Retry.BaseIntervalSec > 0 {
			doc.Retry.BaseIntervalSec = y.Retry.BaseIntervalSec
		}
		if y.Retry.BackoffMultiplier > 0 {
			doc.Retry.BackoffMultiplier = y.Retry.BackoffMultiplier
		}
		if y.Retry.PerAttemptTimeoutSec > 0 {
			doc.Retry.PerAttemptTimeoutSec = y.Retry.PerAttemptTimeoutSec
		}
	}

	if _, err := time.LoadLocation(doc.Timezone); err != nil {
		return ConfigDocument{}, &ConfigError{Msg: fmt.Sprintf("unknown timezone %q", doc.Timezone), Cause: err}
	}

	for _, yd := range y.Devices {
		d, err := yd.toModel()
		if err != nil {
			return ConfigDocument{}, &ConfigError{Msg: fmt.Sprintf("device %q", yd.ID), Cause: err}
		}
		doc.Devices = append(doc.Devices, d)
	}

	for _, yg := range y.Groups {
		doc.Groups = append(doc.Groups, model.Group{ID: yg.ID, Name: yg.Name, DeviceIDs: yg.DeviceIDs})
	}

	return doc, nil
}

func (yd yamlDevice) toModel() (model.Device, error) {
	d := model.Device{
		ID:       yd.ID,
		Name:     yd.Name,
		Type:     model.DeviceType(yd.Type),
		Host:     yd.Host,
		Port:     yd.Port,
		GroupIDs: yd.GroupIDs,
	}

	if yd.Credentials != nil {
		c := yd.Credentials
		switch d.Type {
		case model.DeviceTelnetProjector, model.DeviceJSONRPCProjector:
			if c.Username != "" || c.Password != "" {
				d.Credentials.Telnet = &model.TelnetCredentials{Username: c.Username, Password: c.Password}
			}
		case model.DevicePCWake:
			d.Credentials.Wake = &model.WakeCredentials{
				MAC:          c.MAC,
				ShutdownHost: c.ShutdownHost,
				ShutdownPort: c.ShutdownPort,
			}
		}
	}

	if yd.ProbeSpec != nil {
		ps := yd.ProbeSpec
		d.ProbeSpec = model.ProbeSpec{
			Kind:              model.ProbeKind(ps.Kind),
			Port:              ps.Port,
			Path:              ps.Path,
			ExpectStatusBelow: ps.ExpectStatusBelow,
		}
	}

	if err := d.Validate(); err != nil {
		return model.Device{}, err
	}
	return d, nil
}
