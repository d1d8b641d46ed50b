// Package commands wires the gwalerts CLI: listen (long-lived alert
// consumer), writemoc (one-shot skymap to MOC conversion) and history
// (archived notice listing).
package commands
