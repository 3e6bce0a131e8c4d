package game

// ErrInvalidInput is the sentinel for rejected input; match with errors.Is.
var ErrInvalidInput = &InvalidInputError{}

// InvalidInputError reports input the session refuses: empty words, guesses
// before a secret is set, repeats and guesses after the round is found.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e.Message == "" {
		return "invalid input"
	}
	return e.Message
}

// Is matches any *InvalidInputError.
func (e *InvalidInputError) Is(target error) bool {
	_, ok := target.(*InvalidInputError)
	return ok
}

func invalid(field, msg string) error {
	return &InvalidInputError{Field: field, Message: msg}
}
