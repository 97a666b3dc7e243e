// Package server exposes image search, downloads and the local image tree
// over HTTP.
//
// Responses are JSON. Failures carry an error string and a timestamp; the
// status code is derived from the error taxonomy of the image and storage
// packages in one place (see statusFor).
package server
