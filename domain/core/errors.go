package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Argument validation errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidPDD      = fmt.Errorf("%w: category probabilities", ErrInvalidArgument)
	ErrInvalidFC       = fmt.Errorf("%w: fold-change", ErrInvalidArgument)
	ErrInvalidNGenes   = fmt.Errorf("%w: gene count", ErrInvalidArgument)
	ErrInvalidNCells   = fmt.Errorf("%w: cell count", ErrInvalidArgument)

	// Sampling errors
	ErrInsufficientPopulation = errors.New("insufficient population")

	// Distribution errors
	ErrInvalidParameter = errors.New("invalid distribution parameter")

	// Reference dataset errors
	ErrReferenceInvalid = errors.New("invalid reference dataset")

	// Lookup errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewArgumentError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, field, reason)
}

func NewPopulationError(pool string, requested, remaining int) error {
	return fmt.Errorf("%w: pool %s: requested %d with %d remaining", ErrInsufficientPopulation, pool, requested, remaining)
}

func NewParameterError(cluster, sample, category, gene string, reason string) error {
	return fmt.Errorf("%w: cluster %s sample %s category %s gene %s: %s", ErrInvalidParameter, cluster, sample, category, gene, reason)
}

func NewReferenceError(reason string) error {
	return fmt.Errorf("%w: %s", ErrReferenceInvalid, reason)
}

// Error checking helpers
func IsInvalidArgumentError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInsufficientPopulationError(err error) bool {
	return errors.Is(err, ErrInsufficientPopulation)
}

func IsInvalidParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

func IsReferenceError(err error) bool {
	return errors.Is(err, ErrReferenceInvalid)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
