// Package infra contains technical adapters such as the TCP printer
// transport, the relay broker client, the file-backed configuration
// store and metrics exporters. These packages should depend only on
// the interfaces defined in the core packages.
package infra
