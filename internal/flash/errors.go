package flash

import "fmt"

// PlatformUnsupportedError reports a host OS with no known programmer location.
type PlatformUnsupportedError struct {
	GOOS string
}

func (e *PlatformUnsupportedError) Error() string {
	return fmt.Sprintf("no STM32_Programmer_CLI location known for host platform %q; add one under `programmers` in the config file or set STM32_PROGRAMMER_CLI", e.GOOS)
}

// StagingError reports a staged file that is not there when the programmer is
// about to be invoked.
type StagingError struct {
	Path   string
	Reason string
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("staged firmware %s %s", e.Path, e.Reason)
}
