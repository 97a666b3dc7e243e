// Package cli provides command-line interface setup and configuration
// for the image server. It handles flag parsing, command creation, and
// configuration management using cobra and viper.
package cli
