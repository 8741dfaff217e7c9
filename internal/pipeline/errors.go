package pipeline

import "github.com/rotisserie/eris"

// ErrBudgetExhausted signals that the daily spend window is used up. The
// runner stops picking up topics; nothing about the current topic changed.
var ErrBudgetExhausted = eris.New("pipeline: daily budget exhausted")

// ErrMalformedResponse marks a model response that could not be parsed as
// the expected structure. Stage errors wrapping it are classified as parse
// failures rather than service failures.
var ErrMalformedResponse = eris.New("pipeline: malformed model response")
