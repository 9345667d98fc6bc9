package cli

import "fmt"

type filesFailedError int

func (e filesFailedError) Error() string { return fmt.Sprintf("%d file(s) failed", int(e)) }

func errFilesFailed(n int) error { return filesFailedError(n) }
