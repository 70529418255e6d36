// Package resources declares the concrete CRUD resources of the API.
package resources

import "fmt"

type validatable interface {
	Validate() error
}

// Check validates every resource definition, failing fast at startup on a
// misconfigured whitelist or schema.
func Check() error {
	defs := map[string]validatable{
		"users":     Users(),
		"products":  Products(),
		"estimates": Estimates(),
	}
	for name, def := range defs {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("invalid %s resource: %w", name, err)
		}
	}
	return nil
}
