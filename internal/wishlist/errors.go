// ABOUTME: Domain error for a missing item, shared by every transport
// ABOUTME: Carries the id so REST and MCP report the same message

package wishlist

import "fmt"

// NotFoundError reports that no item has the given id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Item with id '%s' not found", e.ID)
}
