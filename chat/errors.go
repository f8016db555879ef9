package chat

import "errors"

// ErrEmptyPrompt is returned by Turn for input that is empty or only
// whitespace. Nothing is dispatched or persisted.
var ErrEmptyPrompt = errors.New("empty prompt")
