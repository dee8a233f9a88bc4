// Package services holds the shared failure taxonomy and context helpers used
// by components that talk to external collaborators. Subpackages implement
// the individual service clients.
package services
