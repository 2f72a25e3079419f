package chroot

import (
	"fmt"
	"strings"
)

// Runner runs argv with root as filesystem root.
type Runner interface {
	Run(root string, argv []string) error
}

// ExitError is returned when the command ran but exited unsuccessfully.
type ExitError struct {
	Argv []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited %d", strings.Join(e.Argv, " "), e.Code)
}
