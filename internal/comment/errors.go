// Package comment finds the pull request an event belongs to and keeps a single summary
// comment per workflow context up to date on it.
package comment

// NotCommenting reports that no pull request comment can be posted for this run.
// It is recoverable: callers should report Reason and carry on without commenting.
type NotCommenting struct {
	Reason string
}

func (e *NotCommenting) Error() string {
	return "not commenting: " + e.Reason
}

func notCommenting(reason string) error {
	return &NotCommenting{Reason: reason}
}
