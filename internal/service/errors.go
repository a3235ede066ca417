package service

import (
	"errors"

	"github.com/nurpe/proposals/internal/validation"
)

var (
	ErrNotFound     = errors.New("proposal not found")
	ErrInvalidInput = validation.ErrInvalid
)
