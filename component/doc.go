// Package component defines the lifecycle interfaces a host application uses
// to start, stop and health-check spacs resources alongside its own.
package component
