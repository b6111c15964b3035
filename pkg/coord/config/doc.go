// Package config holds the start-up constants of the coordination layer:
// queue sizes, lock timeouts, readiness bit assignments and the priority,
// core affinity, stack and period of every task. Values come from Default
// and can be overridden field by field from a YAML file.
package config
