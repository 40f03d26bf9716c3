package notify

import "fmt"

// DispatchError reports a rejected or failed email send, carrying whatever
// the upstream service answered. StatusCode and Body are zero when the
// failure happened before the provider responded.
type DispatchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DispatchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("notify: provider returned status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("notify: provider returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("notify: send failed: %v", e.Err)
	default:
		return "notify: send failed"
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
