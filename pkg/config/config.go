// Package config holds the resolved, post-merge configuration for a benchmark
// run: iteration/concurrency/rampup counts, global template values, database
// targets, and the CLI-level toggles that change how a run behaves.
package config

import "fmt"

// DbDefinition describes one named database target under the plan's
// top-level "database" key. Either ConnectionString is set directly, or
// the parameterized fields are used to build one.
type DbDefinition struct {
	Type             string `yaml:"type,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty"`
	Host             string `yaml:"host,omitempty"`
	Port             int    `yaml:"port,omitempty"`
	User             string `yaml:"user,omitempty"`
	Password         string `yaml:"password,omitempty"`
	DbName           string `yaml:"dbname,omitempty"`
}

// DSN resolves the definition to a driver connection string. Interpolation
// of any {{ }} placeholders must already have happened on the individual
// fields before calling this.
func (d DbDefinition) DSN() (string, error) {
	if d.ConnectionString != "" {
		return d.ConnectionString, nil
	}
	if d.Host == "" || d.DbName == "" {
		return "", fmt.Errorf("database definition missing connection_string or host/dbname")
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, port, d.DbName), nil
}

// Config is the fully resolved set of knobs that drive one benchmark run.
// It is built once by the plan loader from the document's top-level fields,
// the CLI flags, and any merged .env file, and is read-only from then on.
type Config struct {
	Iterations int
	Concurrency int
	Rampup      int // seconds

	Global map[string]interface{}
	Dbs    map[string]DbDefinition
	Urls   map[string]string

	Quiet                 bool
	Verbose               bool
	Nanosec               bool
	NoCheckCertificate     bool
	RelaxedInterpolations  bool
	TimeoutSeconds         int

	Tags     []string
	SkipTags []string
}

// Validate applies the defaulting and consistency rules for a run:
// concurrency defaults to iterations, iterations default to 1, and
// concurrency may never exceed iterations.
func (c *Config) Validate() error {
	if c.Iterations <= 0 {
		c.Iterations = 1
	}
	if c.Concurrency <= 0 {
		c.Concurrency = c.Iterations
	}
	if c.Concurrency > c.Iterations {
		return fmt.Errorf("concurrency (%d) cannot be greater than iterations (%d)", c.Concurrency, c.Iterations)
	}
	if c.Global == nil {
		c.Global = map[string]interface{}{}
	}
	if c.Dbs == nil {
		c.Dbs = map[string]DbDefinition{}
	}
	if c.Urls == nil {
		c.Urls = map[string]string{}
	}
	return nil
}
