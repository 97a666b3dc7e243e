// Package batch reads query lists for bulk image searches.
package batch
