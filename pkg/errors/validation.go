package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

const (
	maxNameLength      = 256
	maxPathLength      = 500
	maxSerialLength    = 64 // DICOM LO
	maxMachineNameLen  = 16 // DICOM SH
	defaultDicomSuffix = ".dcm"
)

// ValidateUploadName validates an uploaded file name for safety.
// It ensures the name is a simple basename without path components.
func ValidateUploadName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "file name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "file name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "file name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "file name cannot contain path components")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidInput, "file name cannot be a hidden file")
	}

	return nil
}

// ValidatePath validates a local file path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateSerialNumber validates a DeviceSerialNumber value (DICOM LO).
func ValidateSerialNumber(s string) error {
	return validateDicomString("device serial number", s, maxSerialLength)
}

// ValidateMachineName validates a TreatmentMachineName value (DICOM SH).
func ValidateMachineName(s string) error {
	return validateDicomString("treatment machine name", s, maxMachineNameLen)
}

func validateDicomString(field, s string, max int) error {
	if strings.TrimSpace(s) == "" {
		return New(ErrCodeInvalidConfig, "%s cannot be empty", field)
	}
	if len(s) > max {
		return New(ErrCodeInvalidConfig, "%s too long (max %d characters)", field, max)
	}
	for _, r := range s {
		if r > unicode.MaxASCII || unicode.IsControl(r) || r == '\\' {
			return New(ErrCodeInvalidConfig, "%s contains invalid characters", field)
		}
	}
	return nil
}

// OutputName derives the default output file name for a converted plan.
// The input extension is replaced and the direction label is appended, e.g.
// "RP.T3.dcm" converted to HD becomes "RP.T3_AdaptM2HD.dcm".
func OutputName(input, label string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = defaultDicomSuffix
	}
	return strings.TrimSuffix(base, ext) + "_" + label + ext
}
