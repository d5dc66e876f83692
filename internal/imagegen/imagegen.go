// Package imagegen talks to the generative-image provider that edits an
// avatar into an outfit.
package imagegen

import (
	"context"
	"errors"
)

// ErrEmptyResult means the provider answered successfully but returned no
// image part.
var ErrEmptyResult = errors.New("imagegen: provider returned no image")

// Editor edits an image according to a text instruction.
//
// Implementations must honour ctx cancellation. They return ErrEmptyResult
// (possibly wrapped) when the response carries no image.
type Editor interface {
	Edit(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error)
}
