// Package config loads the HCL run configuration of madxp: logging, the
// engine to drive, the script policies and where the profile is written.
//
// A configuration may be split over several files; Load decodes them in
// order and later files override the scalar settings of earlier ones.
package config
