// Package config holds the tunables shared by every component of the
// core, with documented defaults and an environment-variable loader
// matching the conventions the rest of the module's factories use.
package config
