// Package conf parses the link layer's YAML configuration file, in the
// same setDefaults()/validate() idiom as Dragon-Born-paqet's
// internal/conf (conf.go, network.go, udp.go): raw `_`-suffixed string
// fields decoded from YAML, resolved into typed fields during
// validation, every validation error collected rather than returned on
// first failure.
package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"unilink/internal/flog"
)

// Conf is the root configuration document.
type Conf struct {
	Log       Log        `yaml:"log"`
	UDP       UDP        `yaml:"udp"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

// LoadFromFile reads, defaults, and validates a YAML configuration file,
// mirroring conf.LoadFromFile's ordering in the teacher: unmarshal, then
// setDefaults, then validate.
func LoadFromFile(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Conf
	if err := yaml.Unmarshal(data, &c); err != nil {
		return &c, err
	}

	c.setDefaults()
	if err := c.validate(); err != nil {
		return &c, err
	}
	return &c, nil
}

func (c *Conf) setDefaults() {
	c.Log.setDefaults()
	c.UDP.setDefaults()
	for i := range c.Endpoints {
		c.Endpoints[i].setDefaults()
	}
}

func (c *Conf) validate() error {
	var allErrors []error
	allErrors = append(allErrors, c.Log.validate()...)
	allErrors = append(allErrors, c.UDP.validate()...)
	for i := range c.Endpoints {
		errs := c.Endpoints[i].validate()
		for _, err := range errs {
			allErrors = append(allErrors, fmt.Errorf("endpoints[%d]: %w", i, err))
		}
	}
	return writeErr(allErrors)
}

func writeErr(allErrors []error) error {
	if len(allErrors) == 0 {
		return nil
	}
	messages := make([]string, 0, len(allErrors))
	for _, err := range allErrors {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}

// Log configures internal/flog's package-level logger.
type Log struct {
	Level string `yaml:"level"`
}

func (l *Log) setDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

var levelByName = map[string]int{
	"none":  int(flog.None),
	"debug": int(flog.Debug),
	"info":  int(flog.Info),
	"warn":  int(flog.Warn),
	"error": int(flog.Error),
	"fatal": int(flog.Fatal),
}

func (l *Log) validate() []error {
	if _, ok := levelByName[strings.ToLower(l.Level)]; !ok {
		return []error{fmt.Errorf("log.level must be one of none/debug/info/warn/error/fatal, got %q", l.Level)}
	}
	return nil
}

// Apply starts the package-level logger at the configured level.
func (l *Log) Apply() {
	flog.SetLevel(levelByName[strings.ToLower(l.Level)])
}
