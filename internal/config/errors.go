package config

import "errors"

var (
	ErrFailedToLoadConfig   = errors.New("failed to load config")
	ErrParseToml            = errors.New("failed to parse TOML")
	ErrInterpolation        = errors.New("failed to expand environment variables")
	ErrUnsupportedConfigVer = errors.New("unsupported config version")
	ErrInvalidValue         = errors.New("invalid value")
	ErrMissingRequiredField = errors.New("missing required field")
)
