package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	wrapped := WrapError(ErrProviderFailed, fmt.Errorf("connection refused"))

	if !errors.Is(wrapped, ErrProviderFailed) {
		t.Error("wrapped error should match its base by code")
	}
	if errors.Is(wrapped, ErrNoData) {
		t.Error("different codes must not match")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := WrapError(ErrStoreUnavailable, cause)

	if !errors.Is(wrapped, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestError_Message(t *testing.T) {
	plain := ErrSymbolNotFound.Error()
	if plain != "[SYMBOL_NOT_FOUND] symbol not found" {
		t.Errorf("got %q", plain)
	}

	wrapped := WrapError(ErrSymbolNotFound, fmt.Errorf("yahoo: delisted")).Error()
	if wrapped != "[SYMBOL_NOT_FOUND] symbol not found: yahoo: delisted" {
		t.Errorf("got %q", wrapped)
	}
}
