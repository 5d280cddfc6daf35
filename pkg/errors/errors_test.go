// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and utility functions

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "circular_dependency",
			code:    errors.ErrCircularDependency,
			message: "circular dependency detected in package app",
			wantStr: "[CIRCULAR_DEPENDENCY] circular dependency detected in package app",
		},
		{
			name:    "unsupported_mode",
			code:    errors.ErrUnsupportedMode,
			message: "unsupported rule mode zip",
			wantStr: "[UNSUPPORTED_MODE] unsupported rule mode zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}
			if err.Details == nil {
				t.Error("New() details should be initialized")
			}
			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := errors.Newf(errors.ErrToolExecute, "%s exited with code %d", "msbuild", 1)
	if err.Message != "msbuild exited with code 1" {
		t.Errorf("Newf() message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrInternal, "internal error")

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}

		wantStr := "[INTERNAL] internal error: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		err := errors.Wrap(nil, errors.ErrInternal, "internal error")
		if err != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrToolExecute, "failed").
		WithDetail("tool", "dotnet").
		WithDetail("exitCode", 3)

	if err.Details["tool"] != "dotnet" {
		t.Errorf("WithDetail() tool = %v", err.Details["tool"])
	}
	if err.Details["exitCode"] != 3 {
		t.Errorf("WithDetail() exitCode = %v", err.Details["exitCode"])
	}
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     errors.ErrorCode
		expected bool
	}{
		{"matching_code", errors.New(errors.ErrFileNotFound, "missing"), errors.ErrFileNotFound, true},
		{"different_code", errors.New(errors.ErrFileNotFound, "missing"), errors.ErrInternal, false},
		{"wrapped_error", errors.Wrap(stderrors.New("base"), errors.ErrFileAccess, "denied"), errors.ErrFileAccess, true},
		{"standard_error", stderrors.New("standard error"), errors.ErrFileNotFound, false},
		{"nil_error", nil, errors.ErrFileNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.IsErrorCode(tt.err, tt.code); got != tt.expected {
				t.Errorf("IsErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := errors.GetErrorCode(errors.New(errors.ErrGitDiff, "x")); got != errors.ErrGitDiff {
		t.Errorf("GetErrorCode() = %v", got)
	}
	if got := errors.GetErrorCode(stderrors.New("x")); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode() = %v", got)
	}
	if got := errors.GetErrorDetails(nil); got != nil {
		t.Errorf("GetErrorDetails(nil) = %v", got)
	}
}

func TestErrorChaining(t *testing.T) {
	rootCause := stderrors.New("root cause")
	fileErr := errors.Wrap(rootCause, errors.ErrFileAccess, "cannot read file")
	configErr := errors.Wrap(fileErr, errors.ErrConfigLoad, "failed to load config")

	if !errors.IsErrorCode(configErr, errors.ErrConfigLoad) {
		t.Error("top level should have ErrConfigLoad code")
	}

	var inner *errors.Error
	if !stderrors.As(configErr.Unwrap(), &inner) || inner.Code != errors.ErrFileAccess {
		t.Error("middle error should have ErrFileAccess code")
	}

	if !stderrors.Is(configErr, rootCause) {
		t.Error("should find root cause with errors.Is")
	}
	if !stderrors.Is(configErr, errors.New(errors.ErrConfigLoad, "")) {
		t.Error("errors.Is should match on code")
	}
}
