package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating an AssetError if
// the input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *AssetError {
	if err == nil {
		return nil
	}

	// Preserve path and recoverability of an existing AssetError
	var ae *AssetError
	if errors.As(err, &ae) {
		return &AssetError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       ae,
			Context:     ae.Context,
			Path:        ae.Path,
			Recoverable: ae.Recoverable,
		}
	}

	return &AssetError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeBuild,
	}
}

// WrapBuild wraps an error as a build error for the given path
func WrapBuild(err error, code, message, path string) *AssetError {
	ae := Wrap(err, ErrorTypeBuild, code, message)
	if ae != nil {
		ae.Path = path
	}
	return ae
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *AssetError {
	ae := Wrap(err, ErrorTypeIO, code, message)
	if ae != nil {
		ae.Recoverable = false
	}
	return ae
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *AssetError {
	ae := Wrap(err, ErrorTypeConfig, code, message)
	if ae != nil {
		ae.Recoverable = false
	}
	return ae
}
