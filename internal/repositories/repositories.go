// package repositories provides persistence layer implementations for client state and cached profiles.
package repositories

import (
	"database/sql"
	"fmt"
)

// affected returns an error when result reports zero changed rows.
func affected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}
