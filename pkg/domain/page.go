package domain

import "fmt"

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page selects a slice of a newest-first listing. Number is 0-based.
type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) (Page, error) {
	p := Page{Number: number, Size: size}
	return p, p.Validate()
}

// Validate rejects out of range values instead of clamping them.
func (p Page) Validate() error {
	if p.Number < 0 {
		return fmt.Errorf("%w: page must not be negative", ErrBadRequest)
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return fmt.Errorf("%w: pageSize must be between 1 and %d", ErrBadRequest, MaxPageSize)
	}
	return nil
}

func (p Page) Offset() int {
	return p.Number * p.Size
}
