// Package services defines the error taxonomy shared by the download pipeline.
// Components tag failures with sentinel markers via Wrap so callers can
// classify them with errors.Is without string matching.
package services
