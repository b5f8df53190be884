// Package identity mints the opaque identifiers the service hands out:
// anonymous viewer identities, history record ids and connection ids.
package identity

// Generator mints one new id per call.
type Generator interface {
	Generate() (string, error)
}
