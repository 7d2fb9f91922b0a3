package options

import (
	"fmt"

	"github.com/DevSingh98/mysql-shell/internal/sizeunit"
)

func parsePositiveSize(s string) (int64, error) {
	n, err := sizeunit.Parse(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", s)
	}
	return n, nil
}
