package conf

import (
	"fmt"

	"unilink/internal/link"
)

// Endpoint is one statically configured listener or dial target, e.g.
//
//	endpoints:
//	  - mode: listen
//	    locator: "udp/0.0.0.0:7447"
type Endpoint struct {
	Mode    string `yaml:"mode"`
	Locator string `yaml:"locator"`

	parsed link.Locator `yaml:"-"`
}

func (e *Endpoint) setDefaults() {
	if e.Mode == "" {
		e.Mode = "listen"
	}
}

func (e *Endpoint) validate() []error {
	var errors []error
	if e.Mode != "listen" && e.Mode != "dial" {
		errors = append(errors, fmt.Errorf("mode must be 'listen' or 'dial', got %q", e.Mode))
	}
	loc, err := link.ParseLocator(e.Locator)
	if err != nil {
		errors = append(errors, fmt.Errorf("locator: %w", err))
		return errors
	}
	e.parsed = loc
	return errors
}

// ToEndPoint builds the internal/link.EndPoint this configuration
// describes.
func (e *Endpoint) ToEndPoint() *link.EndPoint {
	return link.NewEndPointFromLocator(e.parsed)
}
