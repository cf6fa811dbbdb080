// Package services defines the shared error taxonomy for external tool
// wrappers and pipeline stages. Errors are tagged with sentinel markers so
// the workflow manager can distinguish permanent failures from ones worth
// retrying.
package services
