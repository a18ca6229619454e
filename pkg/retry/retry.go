// Package retry runs actions until they succeed or a strategy gives up.
package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry executes action until it succeeds, or one of the strategies
// indicates no further attempts should be made. It returns the number of
// attempts made and the last error.
//
// Strategies are evaluated in order, so strategies that sleep should be
// specified last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if !s(i, err) {
				return i, err
			}
		}
	}
}
