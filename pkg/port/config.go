package port

import "flag"

// Config carries the serial endpoint settings.
type Config struct {
	Name     string
	BaudRate int
}

var defaultConfig = Config{BaudRate: DefaultBaudRate}

// SetupFlags registers serial endpoint flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "port", defaultConfig.Name, "Serial port of the TX module.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
}

// NewConfig creates a Config from parsed flags.
func NewConfig() *Config {
	config := defaultConfig
	return &config
}

// Open acquires the configured endpoint.
func (c *Config) Open() (*Port, error) {
	return Open(c.Name, c.BaudRate)
}

// OpenName acquires a named endpoint at the configured baud rate.
func (c *Config) OpenName(name string) (*Port, error) {
	return Open(name, c.BaudRate)
}
